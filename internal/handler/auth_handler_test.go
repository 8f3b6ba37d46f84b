package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

type authServiceMock struct {
	changedFor string
	resetFor   string
}

func (m *authServiceMock) SignIn(_ context.Context, req dto.SignInRequest) (*dto.SignInResponse, error) {
	if req.Password != "password-1" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &dto.SignInResponse{Session: models.Session{AccessToken: "token", ExpiresIn: 3600}}, nil
}

func (m *authServiceMock) ChangePassword(_ context.Context, accountID string, _ dto.ChangePasswordRequest) error {
	m.changedFor = accountID
	return nil
}

func (m *authServiceMock) RequestPasswordReset(_ context.Context, req dto.PasswordResetRequest) error {
	m.resetFor = req.Email
	return nil
}

func (m *authServiceMock) ResetPassword(_ context.Context, req dto.PasswordResetConfirmRequest) error {
	if req.Token != "valid" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid reset token")
	}
	return nil
}

func newAuthRouter(svc *authServiceMock, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(svc)
	r := gin.New()
	r.Use(withClaims(claims))
	r.POST("/auth/sign-in", h.SignIn)
	r.POST("/auth/password", h.ChangePassword)
	r.POST("/auth/password/reset-request", h.RequestPasswordReset)
	r.POST("/auth/password/reset", h.ResetPassword)
	return r
}

func TestAuthHandlerSignIn(t *testing.T) {
	router := newAuthRouter(&authServiceMock{}, nil)

	w, env := perform(t, router, http.MethodPost, "/auth/sign-in", dto.SignInRequest{Email: "a@example.com", Password: "password-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"access_token":"token"`)

	w, env = perform(t, router, http.MethodPost, "/auth/sign-in", dto.SignInRequest{Email: "a@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, env.Error.Code)

	w, _ = perform(t, router, http.MethodPost, "/auth/sign-in", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerChangePasswordRequiresClaims(t *testing.T) {
	svc := &authServiceMock{}
	body := dto.ChangePasswordRequest{CurrentPassword: "password-1", NewPassword: "password-2"}

	w, _ := perform(t, newAuthRouter(svc, nil), http.MethodPost, "/auth/password", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = perform(t, newAuthRouter(svc, &models.JWTClaims{AccountID: "acc-1"}), http.MethodPost, "/auth/password", body)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "acc-1", svc.changedFor)
}

func TestAuthHandlerPasswordReset(t *testing.T) {
	svc := &authServiceMock{}
	router := newAuthRouter(svc, nil)

	w, _ := perform(t, router, http.MethodPost, "/auth/password/reset-request", dto.PasswordResetRequest{Email: "a@example.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "a@example.com", svc.resetFor)

	w, _ = perform(t, router, http.MethodPost, "/auth/password/reset", dto.PasswordResetConfirmRequest{Token: "bad", NewPassword: "password-2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = perform(t, router, http.MethodPost, "/auth/password/reset", dto.PasswordResetConfirmRequest{Token: "valid", NewPassword: "password-2"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
