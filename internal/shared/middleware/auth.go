package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trailventure-backend/internal/shared/response"
	"trailventure-backend/pkg/jwt"
)

// Context keys set by AuthMiddleware and read by handlers.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
	RoleAdmin        = "admin"
)

// AuthMiddleware verifies the Bearer token and stores the caller identity
// (user id + role) on the gin context.
func AuthMiddleware(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := manager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user id in token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, claims.Role)

		c.Next()
	}
}

// AdminMiddleware allows only callers whose token carries the admin role.
// Must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextRoleKey)
		if !ok || role != RoleAdmin {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// UserIDFromContext returns the authenticated caller's id, or nil when the
// request is unauthenticated.
func UserIDFromContext(c *gin.Context) *uuid.UUID {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return nil
	}

	switch v := value.(type) {
	case uuid.UUID:
		return &v
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil
		}
		return &id
	default:
		return nil
	}
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	role, ok := c.Get(ContextRoleKey)
	return ok && role == RoleAdmin
}
