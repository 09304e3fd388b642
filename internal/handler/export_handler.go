package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduops/class-review-api/internal/middleware"
	"github.com/eduops/class-review-api/internal/models"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
	"github.com/eduops/class-review-api/pkg/response"
)

type exportService interface {
	Render(ctx context.Context, scope models.Scope, format string) ([]byte, string, error)
}

// ExportHandler serves downloadable weekly review reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Download godoc
// @Summary Export the weekly review as CSV or PDF
// @Tags Review
// @Produce octet-stream
// @Param format query string false "Export format (csv or pdf), defaults to csv"
// @Success 200 {file} file
// @Router /review/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	payload, contentType, err := h.service.Render(c.Request.Context(), claims.Scope(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("weekly-review-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
