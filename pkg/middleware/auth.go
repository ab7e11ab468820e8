package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onurbyrmv0/chat-relay/pkg/jwt"
)

const (
	UserIDKey     = "user_id"
	NicknameKey   = "nickname"
	AvatarKey     = "avatar"
	IsAdminKey    = "is_admin"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddleware validates JWT tokens issued by the local token manager.
type AuthMiddleware struct {
	tokens *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth returns a Gin middleware that validates access tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(NicknameKey, claims.Nickname)
		c.Set(AvatarKey, claims.Avatar)
		c.Set(IsAdminKey, claims.IsAdmin)

		c.Next()
	}
}

// RequireAdmin returns a Gin middleware that additionally requires the
// admin flag on the token.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin privileges required",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(NicknameKey, claims.Nickname)
		c.Set(AvatarKey, claims.Avatar)
		c.Set(IsAdminKey, true)

		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) (*jwt.Claims, bool) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing authorization header",
		})
		return nil, false
	}

	if !strings.HasPrefix(authHeader, BearerPrefix) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid authorization format",
		})
		return nil, false
	}

	token := strings.TrimPrefix(authHeader, BearerPrefix)
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return nil, false
	}

	if claims.Type != "access" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "access token required",
		})
		return nil, false
	}

	return claims, true
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetNickname extracts the nickname from the Gin context.
func GetNickname(c *gin.Context) string {
	if n, exists := c.Get(NicknameKey); exists {
		return n.(string)
	}
	return ""
}

// IsAdmin reports whether the authenticated user has the admin flag.
func IsAdmin(c *gin.Context) bool {
	if v, exists := c.Get(IsAdminKey); exists {
		b, _ := v.(bool)
		return b
	}
	return false
}
