package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newGuardedRouter(guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(guards, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/users/:id", handlers...)
	r.GET("/scholars/by-account/:accountId", handlers...)
	return r
}

func serve(r http.Handler, target, token string) int {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTMiddleware(t *testing.T) {
	validator := staticValidator{"good": {AccountID: "acc-1", Roles: []string{"ADMIN"}}}
	r := newGuardedRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/x", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/x", "Basic good"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/x", "Bearer bad"))
	assert.Equal(t, http.StatusNoContent, serve(r, "/users/x", "Bearer good"))
	assert.Equal(t, http.StatusNoContent, serve(r, "/users/x", "bearer  good "))
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := newGuardedRouter(OptionalJWT(staticValidator{}))
	assert.Equal(t, http.StatusNoContent, serve(r, "/users/x", ""))
	assert.Equal(t, http.StatusNoContent, serve(r, "/users/x", "Bearer bad"))
}

func TestRBACRolesAndSelf(t *testing.T) {
	validator := staticValidator{
		"admin":   {AccountID: "a1", Roles: []string{"ADMIN"}},
		"tutor":   {AccountID: "t1", Roles: []string{"TUTOR", "PSY"}},
		"scholar": {AccountID: "s1", Roles: []string{"SCHOLAR"}},
	}

	staffOnly := newGuardedRouter(JWT(validator), RequireRoles(models.RoleAdmin, models.RolePsy))
	assert.Equal(t, http.StatusNoContent, serve(staffOnly, "/users/x", "Bearer admin"))
	assert.Equal(t, http.StatusNoContent, serve(staffOnly, "/users/x", "Bearer tutor"))
	assert.Equal(t, http.StatusForbidden, serve(staffOnly, "/users/x", "Bearer scholar"))

	selfOrAdmin := newGuardedRouter(JWT(validator), RBAC(string(models.RoleAdmin), Self))
	assert.Equal(t, http.StatusNoContent, serve(selfOrAdmin, "/users/s1", "Bearer scholar"))
	assert.Equal(t, http.StatusForbidden, serve(selfOrAdmin, "/users/t1", "Bearer scholar"))
	assert.Equal(t, http.StatusNoContent, serve(selfOrAdmin, "/scholars/by-account/s1", "Bearer scholar"))
	assert.Equal(t, http.StatusForbidden, serve(selfOrAdmin, "/scholars/by-account/t1", "Bearer scholar"))

	withoutJWT := newGuardedRouter(RBAC(string(models.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, serve(withoutJWT, "/users/x", ""))
}
