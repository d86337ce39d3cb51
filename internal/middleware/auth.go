package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

// Context keys set by Auth.
const (
	ContextUserID = "userID"
	ContextUser   = "user"
	ContextClaims = "claims"
)

// SessionResolver verifies session tokens and loads their user.
type SessionResolver interface {
	ParseToken(ctx context.Context, token string) (*service.Claims, error)
	Resolve(ctx context.Context, claims *service.Claims) (*model.User, error)
}

// Auth 认证中间件. The user is reloaded on every request so role and region
// changes take effect immediately.
func Auth(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := sessions.ParseToken(c.Request.Context(), token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, service.ErrTokenRevoked) {
				msg = "session closed"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		user, err := sessions.Resolve(c.Request.Context(), claims)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredential) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cannot load user"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// SessionToken reads the Authorization header, falling back to the token
// query parameter used by websocket clients.
func SessionToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// CurrentUser returns the authenticated user, or nil outside Auth.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// CurrentClaims returns the verified token claims, or nil outside Auth.
func CurrentClaims(c *gin.Context) *service.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}
