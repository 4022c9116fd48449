package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger emits one structured access line per request. Server errors are
// logged at warn so they stand out when scanning; everything else is info.
func Logger(log *zap.Logger) gin.HandlerFunc {
	access := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		// Capture before handlers run; some rewrite the URL.
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= 500 {
			access.Warn("request", fields...)
		} else {
			access.Info("request", fields...)
		}
	}
}
