package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/service"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/response"
)

type intakeService interface {
	Submit(ctx context.Context, input dto.SubmissionInput, actor models.Actor) (*dto.IntakeResult, error)
	PreviewSimilar(ctx context.Context, input dto.SubmissionInput, actor models.Actor) (*dto.SimilarPreviewResult, error)
}

type complaintStore interface {
	Get(ctx context.Context, id string, actor models.Actor) (*models.Complaint, error)
	List(ctx context.Context, query dto.ComplaintQuery, actor models.Actor) ([]models.Complaint, *models.Pagination, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
}

type complaintExporter interface {
	Export(ctx context.Context, id string, format service.ExportFormat, actor models.Actor) (*service.ExportResult, error)
}

// ComplaintHandler exposes citizen-facing complaint endpoints.
type ComplaintHandler struct {
	intake   intakeService
	store    complaintStore
	exporter complaintExporter
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(intake intakeService, store complaintStore, exporter complaintExporter) *ComplaintHandler {
	return &ComplaintHandler{intake: intake, store: store, exporter: exporter}
}

// Submit godoc
// @Summary Submit a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body dto.SubmitComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Submit(c *gin.Context) {
	var req dto.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid complaint payload"))
		return
	}
	result, err := h.intake.Submit(c.Request.Context(), req.TextInput(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SubmitDocument godoc
// @Summary Submit a complaint from an uploaded document
// @Description Text is extracted upstream; the request carries the attachment reference and extracted text.
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body dto.SubmitDocumentRequest true "Document complaint"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /complaints/documents [post]
func (h *ComplaintHandler) SubmitDocument(c *gin.Context) {
	var req dto.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid document payload"))
		return
	}
	result, err := h.intake.Submit(c.Request.Context(), req.DocumentInput(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Similar godoc
// @Summary Preview near-duplicate complaints for a draft
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body dto.SubmitComplaintRequest true "Draft"
// @Success 200 {object} response.Envelope
// @Router /complaints/similar [post]
func (h *ComplaintHandler) Similar(c *gin.Context) {
	var req dto.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid draft payload"))
		return
	}
	result, err := h.intake.PreviewSimilar(c.Request.Context(), req.TextInput(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// List godoc
// @Summary List complaints
// @Description Citizens only see their own complaints.
// @Tags Complaints
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param category query string false "Category"
// @Param department query string false "Department"
// @Param band query string false "Priority band"
// @Param search query string false "Search title and description"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "created_at|updated_at|priority_score|status"
// @Param sort_order query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	query, err := parseComplaintQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	complaints, pagination, err := h.store.List(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, pagination)
}

// Get godoc
// @Summary Get complaint with history and notes
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.store.Get(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

// Export godoc
// @Summary Export a complaint with its audit trail
// @Tags Complaints
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Complaint ID"
// @Param format query string false "csv|pdf"
// @Success 200 {file} file
// @Router /complaints/{id}/export [get]
func (h *ComplaintHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("id"), format, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Delete godoc
// @Summary Delete a complaint
// @Description Allowed for the submitter or an admin.
// @Tags Complaints
// @Param id path string true "Complaint ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /complaints/{id} [delete]
func (h *ComplaintHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseComplaintQuery(c *gin.Context) (dto.ComplaintQuery, error) {
	var query dto.ComplaintQuery
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := models.ParseComplaintStatus(part)
			if err != nil {
				return query, appErrors.Clone(appErrors.ErrInvalidInput, err.Error())
			}
			query.Status = append(query.Status, status)
		}
	}
	if raw := c.Query("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrInvalidInput, err.Error())
		}
		query.Category = category
	}
	if raw := strings.ToLower(strings.TrimSpace(c.Query("band"))); raw != "" {
		switch band := models.PriorityBand(raw); band {
		case models.BandLow, models.BandMedium, models.BandHigh:
			query.Band = band
		default:
			return query, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("band %q is not recognised", raw))
		}
	}
	query.Department = strings.TrimSpace(c.Query("department"))
	query.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}
	query.SortBy = c.Query("sort_by")
	query.SortOrder = c.Query("sort_order")
	return query, nil
}
