package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/export"
)

type rosterReader interface {
	Roster(ctx context.Context, typ models.EnrollmentType, offeringID string) ([]models.RosterRow, error)
}

// ExportedFile is a rendered export with its download metadata.
type ExportedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders offering rosters as CSV or PDF downloads.
type ExportService struct {
	rosters rosterReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(rosters rosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		rosters: rosters,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var rosterHeaders = []string{"DNI", "Apellidos", "Nombres", "Item", "Estado"}

// Roster renders the accepted roster of an offering in the requested
// format ("csv" or "pdf").
func (s *ExportService) Roster(ctx context.Context, typ models.EnrollmentType, offeringID, format string) (*ExportedFile, error) {
	rows, err := s.rosters.Roster(ctx, typ, offeringID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		item := ""
		if row.ItemName != nil {
			item = *row.ItemName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"DNI":       row.DNI,
			"Apellidos": row.LastName,
			"Nombres":   row.FirstName,
			"Item":      item,
			"Estado":    string(row.Status),
		})
	}

	base := fmt.Sprintf("roster-%s-%s", typ, offeringID)
	switch format {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return &ExportedFile{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "Lista de estudiantes")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return &ExportedFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
