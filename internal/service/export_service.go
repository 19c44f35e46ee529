package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/export"
)

// ExportFormat is a supported rendering of a complaint record.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ParseExportFormat validates a format query value. Empty defaults to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportCSV, nil
	case "pdf":
		return ExportPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportResult is a rendered complaint record ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type complaintReader interface {
	Get(ctx context.Context, id string, actor models.Actor) (*models.Complaint, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportService renders a complaint with its audit trail.
type ExportService struct {
	complaints complaintReader
	csv        documentRenderer
	pdf        documentRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(complaints complaintReader, logger *zap.Logger, csv documentRenderer, pdf documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{complaints: complaints, csv: csv, pdf: pdf, logger: logger}
}

// Export renders complaint id in the requested format. Access follows Get.
func (s *ExportService) Export(ctx context.Context, id string, format ExportFormat, actor models.Actor) (*ExportResult, error) {
	complaint, err := s.complaints.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	doc := complaintDocument(complaint)

	var (
		renderer    documentRenderer
		contentType string
	)
	switch format {
	case ExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	case ExportCSV:
		renderer, contentType = s.csv, "text/csv"
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unsupported export format %q", format))
	}
	data, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("complaint exported", zap.String("complaint_id", id), zap.String("format", string(format)))
	return &ExportResult{
		Filename:    fmt.Sprintf("complaint-%s.%s", complaint.ID, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func complaintDocument(c *models.Complaint) export.Document {
	fields := []export.Field{
		{Label: "ID", Value: c.ID},
		{Label: "Title", Value: c.Title},
		{Label: "Status", Value: string(c.Status)},
		{Label: "Category", Value: string(c.Category)},
		{Label: "Urgency", Value: string(c.Urgency)},
		{Label: "Department", Value: c.Department},
		{Label: "Priority", Value: fmt.Sprintf("%d (%s)", c.PriorityScore, c.PriorityBand)},
		{Label: "Estimated resolution", Value: c.EstimatedResolution},
		{Label: "Location", Value: c.Location},
		{Label: "Submitted", Value: c.CreatedAt.UTC().Format(time.RFC3339)},
		{Label: "Description", Value: c.Description},
	}

	history := export.Section{Title: "Status history", Headers: []string{"Seq", "Kind", "Status", "Actor", "Timestamp", "Note"}}
	for _, e := range c.StatusHistory {
		note := ""
		if e.Note != nil {
			note = *e.Note
		}
		history.Rows = append(history.Rows, []string{
			strconv.Itoa(e.Seq), string(e.Kind), string(e.Status), e.Actor, e.Timestamp.UTC().Format(time.RFC3339), note,
		})
	}
	notes := export.Section{Title: "Notes", Headers: []string{"Seq", "Actor", "Timestamp", "Text"}}
	for _, n := range c.Notes {
		notes.Rows = append(notes.Rows, []string{strconv.Itoa(n.Seq), n.Actor, n.Timestamp.UTC().Format(time.RFC3339), n.Text})
	}

	return export.Document{
		Title:    "Complaint " + c.ID,
		Fields:   fields,
		Sections: []export.Section{history, notes},
	}
}
