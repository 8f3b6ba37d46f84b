package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/models"
	"github.com/muchasmas/scholarship-api/internal/service"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

type catalogService interface {
	Departments(ctx context.Context) ([]models.Department, error)
	Municipalities(ctx context.Context, departmentID int) ([]models.Municipality, error)
	Districts(ctx context.Context, municipalityID int) ([]models.District, error)
	Banks(ctx context.Context) ([]models.Bank, error)
	Refresh(ctx context.Context)
	CreateBank(ctx context.Context, name string, logo *service.Upload) (*models.Bank, error)
	UpdateBank(ctx context.Context, id int, name *string, logo *service.Upload) (*models.Bank, error)
	DeleteBank(ctx context.Context, id int) error
}

// CatalogHandler serves the geography and bank catalogs.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Departments godoc
// @Summary List departments
// @Tags Catalogs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalogs/departments [get]
func (h *CatalogHandler) Departments(c *gin.Context) {
	items, err := h.service.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Municipalities godoc
// @Summary List municipalities of a department
// @Tags Catalogs
// @Produce json
// @Security BearerAuth
// @Param departmentId query int true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalogs/municipalities [get]
func (h *CatalogHandler) Municipalities(c *gin.Context) {
	departmentID, err := intQuery(c, "departmentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Municipalities(c.Request.Context(), departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Districts godoc
// @Summary List districts of a municipality
// @Tags Catalogs
// @Produce json
// @Security BearerAuth
// @Param municipalityId query int true "Municipality ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalogs/districts [get]
func (h *CatalogHandler) Districts(c *gin.Context) {
	municipalityID, err := intQuery(c, "municipalityId")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Districts(c.Request.Context(), municipalityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Banks godoc
// @Summary List banks
// @Tags Catalogs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalogs/banks [get]
func (h *CatalogHandler) Banks(c *gin.Context) {
	items, err := h.service.Banks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Refresh godoc
// @Summary Drop cached catalogs
// @Tags Catalogs
// @Security BearerAuth
// @Success 204
// @Router /catalogs/refresh [post]
func (h *CatalogHandler) Refresh(c *gin.Context) {
	h.service.Refresh(c.Request.Context())
	response.NoContent(c)
}

// CreateBank godoc
// @Summary Create bank
// @Tags Catalogs
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Bank name"
// @Param file formData file true "Logo image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /catalogs/banks [post]
func (h *CatalogHandler) CreateBank(c *gin.Context) {
	logo, closer, err := formUpload(c, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closer.Close()

	bank, err := h.service.CreateBank(c.Request.Context(), c.PostForm("name"), logo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bank)
}

// UpdateBank godoc
// @Summary Update bank
// @Description Rename a bank and optionally replace its logo
// @Tags Catalogs
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bank ID"
// @Param name formData string false "Bank name"
// @Param file formData file false "Logo image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalogs/banks/{id} [patch]
func (h *CatalogHandler) UpdateBank(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	logo, closer, err := formUpload(c, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closer.Close()

	var name *string
	if v, ok := c.GetPostForm("name"); ok {
		name = &v
	}
	bank, err := h.service.UpdateBank(c.Request.Context(), int(id), name, logo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bank, nil)
}

// DeleteBank godoc
// @Summary Delete bank
// @Tags Catalogs
// @Security BearerAuth
// @Param id path int true "Bank ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalogs/banks/{id} [delete]
func (h *CatalogHandler) DeleteBank(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteBank(c.Request.Context(), int(id)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// formUpload opens the "file" part of a multipart request. A missing optional
// file yields a nil upload.
func formUpload(c *gin.Context, required bool) (*service.Upload, io.Closer, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if !required && (errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)) {
			return nil, nopCloser{}, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file required")
	}
	var file multipart.File
	if file, err = header.Open(); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file")
	}
	return &service.Upload{Filename: header.Filename, Body: file}, file, nil
}
