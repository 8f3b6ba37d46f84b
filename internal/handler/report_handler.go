package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/service"
	"github.com/muchasmas/scholarship-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, kind service.ReportKind, format string) (*service.ReportFile, error)
}

// ReportHandler streams downloadable reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Scholars godoc
// @Summary Scholars report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv|pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/scholars [get]
func (h *ReportHandler) Scholars(c *gin.Context) {
	h.generate(c, service.ReportScholars)
}

// Users godoc
// @Summary Users report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv|pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/users [get]
func (h *ReportHandler) Users(c *gin.Context) {
	h.generate(c, service.ReportUsers)
}

func (h *ReportHandler) generate(c *gin.Context, kind service.ReportKind) {
	file, err := h.service.Generate(c.Request.Context(), kind, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
