package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"patrolops/api/internal/model"
)

// RequireCapability 检查指定权限
func RequireCapability(capability model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		if !user.Capabilities().Has(capability) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":      "permission denied",
				"permission": capability,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
