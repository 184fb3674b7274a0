package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nao1215/neurobreak/internal/config"
	"github.com/nao1215/neurobreak/pkg/gatewayclient"
	"github.com/nao1215/neurobreak/pkg/middleware"
)

const (
	// serviceName はルートエンドポイントで返すサービス名。
	serviceName = "NeuroBreak API"
	// serviceVersion はルートエンドポイントで返すバージョン。
	serviceVersion = "0.1.0"

	defaultCallsLimit = 50
	maxCallsLimit     = 500
)

// Server は開発用バックエンドのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は呼び出し履歴の保存先。
	store *callStore
	// logger はサーバーのログ出力先。
	logger *logrus.Entry
}

// NewServer は新しい開発用バックエンドを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(ctx context.Context, cfg config.BackendConfig, logger *logrus.Entry) (*Server, error) {
	store, err := openCallStore(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("呼び出し履歴の初期化に失敗: %w", err)
	}
	return newServer(cfg, store, logger), nil
}

func newServer(cfg config.BackendConfig, store *callStore, logger *logrus.Entry) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router: router,
		port:   cfg.Port,
		store:  store,
		logger: logger,
	}
	s.setupRoutes(cfg.JWTSecret)
	return s
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.port).Info("mock backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバーの停止に失敗: %w", err)
		}
		return nil
	}
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.store.close()
}

// setupRoutes はAPIルーティングを設定する。
// jwtSecretが空でなければ /api 以下でBearerトークンを要求する。
func (s *Server) setupRoutes(jwtSecret string) {
	api := s.router.Group("/api")
	if jwtSecret != "" {
		api.Use(middleware.JWTAuth(jwtSecret))
	}
	{
		api.POST("/pipeline/run", s.handleRunPipeline())
		api.POST("/moderate", s.handleModerate())
		api.GET("/calls", s.handleListCalls())
	}

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName, "version": serviceVersion})
	})
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

// handleRunPipeline はパイプライン実行のハンドラを返す。
// 入力ガードがblockかつautoBlockの場合は生成を行わずBlockedを返す。
func (s *Server) handleRunPipeline() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body pipelineBody
		if err := c.ShouldBindJSON(&body); err != nil {
			s.reject(c, http.StatusUnprocessableEntity, []fieldError{invalidJSON(err)})
			return
		}
		if errs := body.validate(); len(errs) > 0 {
			s.reject(c, http.StatusUnprocessableEntity, errs)
			return
		}

		start := time.Now()
		guardCfg := *body.GuardConfig
		inputGuard := evaluateGuard(*body.Prompt, guardCfg.Threshold, guardCfg.Categories)

		resp := gatewayclient.PipelineResponse{InputGuard: &inputGuard}
		verdict := inputGuard.Verdict
		if inputGuard.Verdict == gatewayclient.VerdictBlock && guardCfg.AutoBlock {
			resp.Blocked = true
		} else {
			output, promptTokens, completionTokens := generate(*body.Prompt, *body.InferenceConfig)
			outputGuard := evaluateGuard(output, guardCfg.Threshold, guardCfg.Categories)
			resp.Output = output
			resp.OutputGuard = &outputGuard
			resp.Metrics.PromptTokens = promptTokens
			resp.Metrics.CompletionTokens = completionTokens
			verdict = worstVerdict(inputGuard.Verdict, outputGuard.Verdict)
		}
		resp.Metrics.LatencyMs = float64(time.Since(start).Microseconds()) / 1000

		s.recordCall(c, http.StatusOK, verdict)
		c.JSON(http.StatusOK, resp)
	}
}

// handleModerate は単独モデレーションのハンドラを返す。
func (s *Server) handleModerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body moderationBody
		if err := c.ShouldBindJSON(&body); err != nil {
			s.reject(c, http.StatusUnprocessableEntity, []fieldError{invalidJSON(err)})
			return
		}
		if errs := body.validate(); len(errs) > 0 {
			s.reject(c, http.StatusUnprocessableEntity, errs)
			return
		}

		result := evaluateGuard(*body.Text, *body.Threshold, body.Categories)
		s.recordCall(c, http.StatusOK, result.Verdict)
		c.JSON(http.StatusOK, result)
	}
}

// handleListCalls は呼び出し履歴一覧のハンドラを返す。
func (s *Server) handleListCalls() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultCallsLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxCallsLimit {
				c.JSON(http.StatusBadRequest, gin.H{
					"detail": fmt.Sprintf("limit must be an integer between 1 and %d", maxCallsLimit),
				})
				return
			}
			limit = n
		}

		calls, err := s.store.list(c.Request.Context(), limit)
		if err != nil {
			s.logger.WithError(err).Error("failed to list calls")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list calls"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	}
}

// reject は422等のエラーを記録してから {"detail": errs} を返す。
func (s *Server) reject(c *gin.Context, status int, errs []fieldError) {
	s.recordCall(c, status, "")
	c.JSON(status, gin.H{"detail": errs})
}

// recordCall は呼び出し履歴を保存する。保存に失敗してもレスポンスには影響させない。
func (s *Server) recordCall(c *gin.Context, status int, verdict gatewayclient.Verdict) {
	call := Call{
		RequestID: middleware.GetRequestID(c),
		ClientID:  middleware.GetClientID(c),
		Path:      c.Request.URL.Path,
		Status:    status,
		Verdict:   string(verdict),
	}
	if err := s.store.record(c.Request.Context(), call); err != nil {
		s.logger.WithError(err).WithField("request_id", call.RequestID).Warn("failed to record call")
	}
}

// worstVerdict はより厳しい方の判定を返す。
func worstVerdict(a, b gatewayclient.Verdict) gatewayclient.Verdict {
	rank := map[gatewayclient.Verdict]int{
		gatewayclient.VerdictAllow: 0,
		gatewayclient.VerdictFlag:  1,
		gatewayclient.VerdictBlock: 2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
