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

type logbookService interface {
	List(ctx context.Context, req pagination.Request) (*pagination.Result[models.LogbookEntryDetail], error)
	ListByScholar(ctx context.Context, scholarID string, req pagination.Request) (*pagination.Result[models.LogbookEntryDetail], error)
	Create(ctx context.Context, scholarID string, req dto.CreateLogbookEntryRequest, actorID string) (*models.LogbookEntry, error)
	Delete(ctx context.Context, id int64) error
}

// LogbookHandler exposes scholar logbook entries.
type LogbookHandler struct {
	service logbookService
}

// NewLogbookHandler constructs a logbook handler.
func NewLogbookHandler(svc logbookService) *LogbookHandler {
	return &LogbookHandler{service: svc}
}

// List godoc
// @Summary List logbook entries
// @Tags Logbook
// @Produce json
// @Security BearerAuth
// @Param pageIndex query int false "Page index (1-based)"
// @Param pageSize query int false "Page size"
// @Param query query string false "Search term"
// @Param sort[key] query string false "date|createdAt"
// @Param sort[order] query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /logbook [get]
func (h *LogbookHandler) List(c *gin.Context) {
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

// ListByScholar godoc
// @Summary List a scholar's logbook
// @Tags Logbook
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id}/logbook [get]
func (h *LogbookHandler) ListByScholar(c *gin.Context) {
	req, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ListByScholar(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, *result)
}

// Create godoc
// @Summary Add a logbook entry
// @Tags Logbook
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scholar ID"
// @Param payload body dto.CreateLogbookEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scholars/{id}/logbook [post]
func (h *LogbookHandler) Create(c *gin.Context) {
	var req dto.CreateLogbookEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid logbook payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Delete godoc
// @Summary Delete a logbook entry
// @Tags Logbook
// @Security BearerAuth
// @Param id path int true "Entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /logbook/{id} [delete]
func (h *LogbookHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
