package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/dto"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

type authService interface {
	SignIn(ctx context.Context, req dto.SignInRequest) (*dto.SignInResponse, error)
	ChangePassword(ctx context.Context, accountID string, req dto.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req dto.PasswordResetRequest) error
	ResetPassword(ctx context.Context, req dto.PasswordResetConfirmRequest) error
}

// AuthHandler wires HTTP endpoints to the identity gateway.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// SignIn godoc
// @Summary Authenticate account
// @Description Exchange email and password for an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SignInRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-in payload"))
		return
	}

	res, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for the current account
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ChangePasswordRequest true "Change password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), claims.AccountID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RequestPasswordReset godoc
// @Summary Request password reset
// @Description Sends a reset token when the email belongs to an account. Always answers 202.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.PasswordResetRequest true "Email"
// @Success 202
// @Failure 400 {object} response.Envelope
// @Router /auth/password/reset-request [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// ResetPassword godoc
// @Summary Reset password
// @Description Sets a new password using a reset token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.PasswordResetConfirmRequest true "Token and new password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
