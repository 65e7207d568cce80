package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailventure-backend/pkg/logger"
)

// RequestLogger writes one structured line per request after the handler
// chain finishes. Server errors log at warn level so they stand out when
// scanning aggregated output.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if userID := UserIDFromContext(c); userID != nil {
			fields["user_id"] = userID.String()
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields)
			return
		}
		logger.Info("request", fields)
	}
}
