package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// RequireRoles lets a request through when the caller holds one of roles.
// With enforce false (auth disabled) every request passes.
func RequireRoles(enforce bool, roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if !enforce {
			c.Next()
			return
		}
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// WriteRoles guards mutations only; reads pass through untouched.
func WriteRoles(enforce bool, roles ...models.UserRole) gin.HandlerFunc {
	guard := RequireRoles(enforce, roles...)
	return func(c *gin.Context) {
		if isRead(c.Request.Method) {
			c.Next()
			return
		}
		guard(c)
	}
}
