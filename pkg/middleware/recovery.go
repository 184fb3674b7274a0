package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時はloggerにエラーを出力し、500と {"detail": "Internal Server Error"} を返す。
func Recovery(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"request_id": GetRequestID(c),
					"panic":      r,
				}).Error("panic recovered")
				abortWithDetail(c, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		c.Next()
	}
}
