package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func(got *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.POST("/api/moderate", func(c *gin.Context) {
			*got = GetRequestID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("受け取ったX-Request-IDが引き継がれること", func(t *testing.T) {
		t.Parallel()

		var got string
		req := httptest.NewRequest(http.MethodPost, "/api/moderate", nil)
		req.Header.Set(HeaderKeyRequestID, "trace-123")
		w := httptest.NewRecorder()
		newRouter(&got).ServeHTTP(w, req)

		if got != "trace-123" {
			t.Errorf("GetRequestID() = %q, want %q", got, "trace-123")
		}
		if h := w.Header().Get(HeaderKeyRequestID); h != "trace-123" {
			t.Errorf("X-Request-ID = %q, want %q", h, "trace-123")
		}
	})

	t.Run("X-Request-IDが無い場合UUIDが生成されること", func(t *testing.T) {
		t.Parallel()

		var got string
		w := httptest.NewRecorder()
		newRouter(&got).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/moderate", nil))

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("GetRequestID() = %q はUUIDではない: %v", got, err)
		}
		if h := w.Header().Get(HeaderKeyRequestID); h != got {
			t.Errorf("X-Request-ID = %q, want %q", h, got)
		}
	})
}
