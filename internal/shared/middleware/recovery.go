package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"trailventure-backend/internal/shared/response"
	"trailventure-backend/pkg/logger"
)

// Recovery converts a handler panic into a 500 envelope instead of a
// dropped connection, keeping the stack in the log.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorWith("panic recovered", fmt.Errorf("%v", r), map[string]interface{}{
					"request_id": c.GetString("request_id"),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				})

				response.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
