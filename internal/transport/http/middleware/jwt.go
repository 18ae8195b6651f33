package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/pkg/jwtutil"
	"buscador-gpt/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextEmailKey    = "email"
	ContextAdminKey    = "admin"
)

// AuthJWT accepts the token from the Authorization header, or from the
// access_token query parameter for EventSource clients that cannot set headers.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, msg)
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextAdminKey, claims.Admin)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			return token, ""
		}
		return "", "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", "invalid authorization scheme"
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix)), "missing token"
}

// RequireAdmin must run after AuthJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextAdminKey) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
