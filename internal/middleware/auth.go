package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/jwt"
	"github.com/motohub/core/internal/pkg/response"
	sessionpkg "github.com/motohub/core/internal/pkg/session"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeySID    = "session_id"
	ContextKeyRole   = "user_role"
)

// Auth returns a middleware that enforces JWT authentication backed by a
// revocable DB session.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateTokenClaims(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		if claims.SessionID != "" {
			c.Set(ContextKeySID, claims.SessionID)
			sessionpkg.Touch(db, claims.UserID, claims.SessionID)
		}
		c.Next()
	}
}

// OptionalAuth sets the user ID if a valid token is present, but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateTokenClaims(db, extractToken(c)); err == nil && claims.UserID != "" {
			c.Set(ContextKeyUserID, claims.UserID)
			if claims.SessionID != "" {
				c.Set(ContextKeySID, claims.SessionID)
				sessionpkg.Touch(db, claims.UserID, claims.SessionID)
			}
		}
		c.Next()
	}
}

// RequireRole returns a middleware that rejects users without one of the
// given roles. Must run after Auth.
func RequireRole(db *gorm.DB, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			response.Unauthorized(c)
			return
		}

		role, ok := c.Get(ContextKeyRole)
		userRole, _ := role.(models.UserRole)
		if !ok || userRole == "" {
			var row struct {
				Role models.UserRole
			}
			if err := db.Model(&models.UserModel{}).Select("role").Where("id = ?", userID).Scan(&row).Error; err != nil || row.Role == "" {
				response.Forbidden(c)
				return
			}
			userRole = row.Role
			c.Set(ContextKeyRole, userRole)
		}

		for _, r := range roles {
			if userRole == r || userRole == models.RoleAdmin {
				c.Next()
				return
			}
		}
		response.Forbidden(c)
	}
}

// ValidateTokenClaims validates a JWT and its backing session.
func ValidateTokenClaims(db *gorm.DB, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	active, err := sessionpkg.IsActive(db, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.New("session expired or revoked")
	}
	return claims, nil
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string {
	v, _ := c.Get(ContextKeySID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
