package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-session-service/internal/models"
)

// Context keys set by BearerTokenAuth
const (
	ContextUserID    = "user_id"
	ContextTokenInfo = "token_info"
)

// TokenValidator checks an access token
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenInfo, error)
}

type BearerTokenMiddleware struct {
	validator TokenValidator
}

func NewBearerTokenMiddleware(validator TokenValidator) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{validator: validator}
}

// BearerTokenAuth validates the access token and sets the owner in context
func (m *BearerTokenMiddleware) BearerTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		info, err := m.validator.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, info.UserID)
		c.Set(ContextTokenInfo, info)
		c.Next()
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>"
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// UserID returns the authenticated owner, or "" outside protected routes
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   "invalid_access_token",
		"message": message,
	})
}
