package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glancehq/glance-backend/internal/logger"
)

// RequestLog logs each HTTP request through the shared structured logger.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
