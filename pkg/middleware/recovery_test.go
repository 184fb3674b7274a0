package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// newRecoveryRouter はRecoveryを適用したルーターと、ログを捕捉するフックを返す。
func newRecoveryRouter() (*gin.Engine, *test.Hook) {
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(logrus.NewEntry(logger)))
	router.POST("/panic", func(_ *gin.Context) {
		panic("テスト用パニック")
	})
	router.POST("/panic-error", func(_ *gin.Context) {
		panic(errors.New("テスト用エラー"))
	})
	router.POST("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router, hook
}

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニックが発生した場合500とdetailが返ること", func(t *testing.T) {
		t.Parallel()

		router, hook := newRecoveryRouter()
		req := httptest.NewRequest(http.MethodPost, "/panic", nil)
		req.Header.Set(HeaderKeyRequestID, "req-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if got := decodeDetail(t, w); got != "Internal Server Error" {
			t.Errorf("detail = %q, want %q", got, "Internal Server Error")
		}

		entry := hook.LastEntry()
		if entry == nil {
			t.Fatal("パニックがログに出力されていない")
		}
		if entry.Level != logrus.ErrorLevel {
			t.Errorf("Level = %v, want %v", entry.Level, logrus.ErrorLevel)
		}
		if entry.Data["request_id"] != "req-1" {
			t.Errorf("request_id = %v, want %q", entry.Data["request_id"], "req-1")
		}
	})

	t.Run("error型のパニック値でも500が返ること", func(t *testing.T) {
		t.Parallel()

		router, _ := newRecoveryRouter()
		req := httptest.NewRequest(http.MethodPost, "/panic-error", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router, hook := newRecoveryRouter()

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "/panic", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "/ok", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
		if len(hook.AllEntries()) != 1 {
			t.Errorf("ログ件数 = %d, want 1", len(hook.AllEntries()))
		}
	})
}
