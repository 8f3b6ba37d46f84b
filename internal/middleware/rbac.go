package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

// Self grants access when the :accountId (or :id) route parameter is the
// caller's account.
const Self = "SELF"

// RBAC enforces role-based access control for routes. The caller passes when
// any of its roles is allowed.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make([]models.Role, 0, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles = append(allowedRoles, models.Role(a))
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		claims, ok := claimsValue.(*models.JWTClaims)
		if !exists || !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.HasAnyRole(allowedRoles...) {
			c.Next()
			return
		}

		if allowSelf && isSelf(c, claims) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

func isSelf(c *gin.Context, claims *models.JWTClaims) bool {
	for _, key := range []string{"accountId", "id"} {
		if target := c.Param(key); target != "" {
			return target == claims.AccountID
		}
	}
	return false
}
