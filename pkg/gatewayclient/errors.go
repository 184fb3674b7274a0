package gatewayclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// GatewayError はバックエンドが非2xxステータスを返したことを表す。
// Message は1つの文字列に正規化されたエラーメッセージで、Error() はそれだけを返す。
type GatewayError struct {
	// StatusCode はレスポンスのHTTPステータスコード。
	StatusCode int
	// Message はユーザーに表示可能なメッセージ。
	Message string
}

// Error はエラーメッセージを返す。
func (e *GatewayError) Error() string {
	return e.Message
}

// AsGatewayError はerrがGatewayErrorを含む場合にそれを取り出す。
// 通信エラーやデコードエラーの場合はfalseを返す。
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// newStatusError はエラーレスポンスのボディからGatewayErrorを組み立てる。
// ボディの detail から読み取れない場合はステータスコードのみのメッセージになる。
func newStatusError(statusCode int, body []byte) *GatewayError {
	message, ok := extractDetail(body)
	if !ok {
		message = fmt.Sprintf("Request failed with status %d", statusCode)
	}
	return &GatewayError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// extractDetail はエラーボディの detail フィールドをメッセージに変換する。
// キーは大文字小文字を区別して一致させ、重複時は後の値を使う。
// 文字列はそのまま、それ以外の値はJSON文字列として返す。
// オブジェクトと配列はバックエンドが送ったキー順と数値表記のまま空白だけを除去するため、
// JavaScriptの JSON.stringify とバイト単位で一致するとは限らない（例: 7.0 は "7.0" のまま）。
// detail が無い・null・空文字列・0・false の場合、およびボディがJSONオブジェクトでない場合はfalseを返す。
func extractDetail(body []byte) (string, bool) {
	// 構造体へのデコードはキーを大文字小文字を無視して照合するためmapで受ける
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	raw := bytes.TrimSpace(payload["detail"])
	if len(raw) == 0 {
		return "", false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}

	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case float64:
		if v == 0 {
			return "", false
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}

	// オブジェクトと配列はキー順を保ったまま空白を除去する
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, raw); err != nil {
		return "", false
	}
	return compacted.String(), true
}
