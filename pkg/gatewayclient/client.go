package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// PipelineRunPath はパイプライン実行エンドポイントのパス。
	PipelineRunPath = "/api/pipeline/run"
	// ModeratePath は単独モデレーションエンドポイントのパス。
	ModeratePath = "/api/moderate"

	// headerKeyRequestID はリクエストを追跡するためのHTTPヘッダーキー。
	headerKeyRequestID = "X-Request-ID"
)

// Client はNeuroBreakバックエンドへのゲートウェイクライアント。
// New の後は状態を変更しないため、複数のgoroutineから同時に使用できる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先バックエンドのベースURL。
	baseURL string
	// token はAuthorizationヘッダーに付与するBearerトークン。空なら付与しない。
	token string
	// logger は呼び出しごとのログ出力先。
	logger *logrus.Entry
}

// Option はClientの生成時オプション。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
// タイムアウトやTLSの設定はこのHTTPクライアント側で行う。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger はログ出力先を設定する。
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBearerToken はすべてのリクエストに "Authorization: Bearer <token>" を付与する。
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New は新しいゲートウェイクライアントを生成する。
// baseURLには接続先バックエンドのベースURL（例: "http://localhost:8000"）を指定する。
// このクライアントはタイムアウトを設定しない。呼び出しの中断はctxで行う。
func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logrus.NewEntry(discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunPipeline はパイプラインを実行し、その結果を返す。
// 非2xxの場合は *GatewayError を、通信自体が失敗した場合はHTTPクライアントのエラーをそのまま返す。
// 2xxでボディがJSONの null の場合は nil, nil を返す。
func (c *Client) RunPipeline(ctx context.Context, req PipelineRequest) (*PipelineResponse, error) {
	return Post[*PipelineResponse](ctx, c, PipelineRunPath, req)
}

// ModerateOnly はパイプラインを通さずにモデレーションのみを実行する。
// エラーとnullボディの扱いは RunPipeline と同じ。
func (c *Client) ModerateOnly(ctx context.Context, req ModerationRequest) (*GuardResult, error) {
	return Post[*GuardResult](ctx, c, ModeratePath, req)
}

// Post は指定パスにbodyをJSONでPOSTし、レスポンスをTとして返す。
// RunPipeline と ModerateOnly はこの関数で実装されている。
// 型付きAPIで表現できない形のやり取り（map[string]anyなど）にも使用できる。
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var zero T

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return zero, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}

	requestID := requestIDFrom(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerKeyRequestID, requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"path":       path,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Debug("transport failed")
		return zero, err
	}
	defer resp.Body.Close()

	result, err := handleResponse[T](resp)
	logger = logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	if gwErr, ok := AsGatewayError(err); ok {
		logger.WithField("message", gwErr.Message).Warn("gateway request rejected")
	} else {
		logger.Debug("gateway request completed")
	}
	return result, err
}

// handleResponse はレスポンスを型Tに変換する共通処理。
// 2xxならボディをそのままTにデコードし、形の検証は行わない。
// それ以外なら detail を元にメッセージを1つ持つ *GatewayError を返す。
func handleResponse[T any](resp *http.Response) (T, error) {
	var zero T

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 読み取りに失敗した場合もステータスコードのメッセージにフォールバックする
		body, _ := io.ReadAll(resp.Body)
		return zero, newStatusError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return zero, err
	}
	return result, nil
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 設定しない場合は呼び出しごとにUUIDが生成される。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// requestIDFrom はコンテキストのリクエストIDを返す。無ければ新しく生成する。
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
