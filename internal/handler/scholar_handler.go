package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/dto"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

type scholarService interface {
	List(ctx context.Context, req pagination.Request) (*pagination.Result[models.ScholarSummary], error)
	Create(ctx context.Context, req dto.CreateScholarRequest, actorID string) (*models.ScholarDetail, error)
	Get(ctx context.Context, id string) (*models.ScholarDetail, error)
	GetByAccount(ctx context.Context, accountID string) (*models.ScholarDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateScholarRequest, actorID string) (*models.ScholarDetail, error)
	UpdateByEmail(ctx context.Context, email string, req dto.UpdateScholarRequest, actorID string) (*models.ScholarDetail, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
	RemovePhoneNumber(ctx context.Context, scholarID string, linkID int64) error
}

// ScholarHandler exposes the scholar aggregate.
type ScholarHandler struct {
	service scholarService
}

// NewScholarHandler constructs a scholar handler.
func NewScholarHandler(svc scholarService) *ScholarHandler {
	return &ScholarHandler{service: svc}
}

// List godoc
// @Summary List scholars
// @Description Paginated scholar search. query matches names, ref code, email and DUI; status filters on state.
// @Tags Scholars
// @Produce json
// @Security BearerAuth
// @Param pageIndex query int false "Page index (1-based)"
// @Param pageSize query int false "Page size"
// @Param query query string false "Search term"
// @Param status query string false "all|ACTIVE|INACTIVE|GRADUATED|SUSPENDED"
// @Param sort[key] query string false "Sort key"
// @Param sort[order] query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scholars [get]
func (h *ScholarHandler) List(c *gin.Context) {
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

// Create godoc
// @Summary Create scholar
// @Description Registers the identity, account, scholar and sub-entities in one operation
// @Tags Scholars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateScholarRequest true "Scholar payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /scholars [post]
func (h *ScholarHandler) Create(c *gin.Context) {
	var req dto.CreateScholarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scholar payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get scholar
// @Tags Scholars
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id} [get]
func (h *ScholarHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetByAccount godoc
// @Summary Get scholar by account
// @Tags Scholars
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/by-account/{accountId} [get]
func (h *ScholarHandler) GetByAccount(c *gin.Context) {
	detail, err := h.service.GetByAccount(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Patch scholar
// @Description Absent fields are left untouched; null clears nullable fields
// @Tags Scholars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Param payload body dto.UpdateScholarRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id} [patch]
func (h *ScholarHandler) Update(c *gin.Context) {
	var req dto.UpdateScholarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scholar payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateByEmail godoc
// @Summary Patch scholar by account email
// @Tags Scholars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Account email"
// @Param payload body dto.UpdateScholarRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/by-email/{email} [patch]
func (h *ScholarHandler) UpdateByEmail(c *gin.Context) {
	var req dto.UpdateScholarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scholar payload"))
		return
	}

	detail, err := h.service.UpdateByEmail(c.Request.Context(), c.Param("email"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete scholar
// @Description Removes the scholar, its sub-entities, its account and its identity
// @Tags Scholars
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id} [delete]
func (h *ScholarHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAll godoc
// @Summary Delete every scholar
// @Description Development only
// @Tags Scholars
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /scholars [delete]
func (h *ScholarHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.service.DeleteAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// RemovePhoneNumber godoc
// @Summary Unlink a phone number
// @Tags Scholars
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Param phoneId path int true "Phone link ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id}/phone-numbers/{phoneId} [delete]
func (h *ScholarHandler) RemovePhoneNumber(c *gin.Context) {
	linkID, err := int64Param(c, "phoneId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.RemovePhoneNumber(c.Request.Context(), c.Param("id"), linkID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
