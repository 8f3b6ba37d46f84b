package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, req pagination.Request) (*pagination.Result[models.Account], error)
	Get(ctx context.Context, id string) (*dto.UserDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserDetail, error)
	UpdateRoles(ctx context.Context, id string, req dto.UpdateRolesRequest) (*dto.UserDetail, error)
	UploadProfileImage(ctx context.Context, id, filename string, r io.Reader) (*dto.UserDetail, error)
	SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.UserDetail, error)
	Delete(ctx context.Context, id, actorID string) error
}

// UserHandler handles account endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List accounts with pagination. status filters on a role.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param pageIndex query int false "Page index (1-based)"
// @Param pageSize query int false "Page size"
// @Param query query string false "Search term"
// @Param status query string false "all or a role"
// @Param sort[key] query string false "Sort key"
// @Param sort[order] query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	req, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, *result)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Update godoc
// @Summary Patch user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param payload body dto.UpdateUserRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateRoles godoc
// @Summary Replace user roles
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param payload body dto.UpdateRolesRequest true "Roles"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id}/roles [put]
func (h *UserHandler) UpdateRoles(c *gin.Context) {
	var req dto.UpdateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.service.UpdateRoles(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UploadProfileImage godoc
// @Summary Upload profile image
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id}/profile-image [post]
func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	user, err := h.service.UploadProfileImage(c.Request.Context(), c.Param("id"), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// SignUp godoc
// @Summary Create staff account
// @Description Provision credentials and an account with roles and a reference code
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SignUpRequest true "Staff account"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/sign-up [post]
func (h *UserHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-up payload"))
		return
	}
	user, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	id := actorID(c)
	if id == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Description Remove a staff account, its credentials and its profile image
// @Tags Users
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
