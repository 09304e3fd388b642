package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/models"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
	"github.com/eduops/class-review-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type datasetProvider interface {
	ExportDataset(ctx context.Context, scope models.Scope) (export.Dataset, string, error)
}

// ExportService renders the weekly review summary as CSV or PDF bytes.
type ExportService struct {
	review datasetProvider
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(review datasetProvider, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{review: review, csv: csv, pdf: pdf, logger: logger}
}

// Render produces the weekly summary in the requested format. Supported
// formats are "csv" and "pdf"; the returned string is the content type.
func (s *ExportService) Render(ctx context.Context, scope models.Scope, format string) ([]byte, string, error) {
	dataset, title, err := s.review.ExportDataset(ctx, scope)
	if err != nil {
		return nil, "", err
	}
	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
