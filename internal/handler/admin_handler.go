package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/response"
)

type complaintAdminService interface {
	Transition(ctx context.Context, id string, to models.ComplaintStatus, actor models.Actor, note string) (*models.Complaint, error)
	Reopen(ctx context.Context, id string, actor models.Actor, reason string) (*models.Complaint, error)
	AssignDepartment(ctx context.Context, id, department string, actor models.Actor) (*models.Complaint, error)
	AddNote(ctx context.Context, id string, actor models.Actor, text string) (*models.Complaint, error)
}

// AdminHandler exposes staff-only complaint mutations.
type AdminHandler struct {
	complaints complaintAdminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(complaints complaintAdminService) *AdminHandler {
	return &AdminHandler{complaints: complaints}
}

// UpdateStatus godoc
// @Summary Change complaint status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.UpdateStatusRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/complaints/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid status payload"))
		return
	}
	status, err := models.ParseComplaintStatus(req.Status)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, err.Error()))
		return
	}
	complaint, err := h.complaints.Transition(c.Request.Context(), c.Param("id"), status, actorFromContext(c), req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

// Reopen godoc
// @Summary Reopen a resolved complaint
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.ReopenRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints/{id}/reopen [post]
func (h *AdminHandler) Reopen(c *gin.Context) {
	var req dto.ReopenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid reopen payload"))
		return
	}
	complaint, err := h.complaints.Reopen(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

// AssignDepartment godoc
// @Summary Route a complaint to another department
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.AssignDepartmentRequest true "Department"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints/{id}/department [put]
func (h *AdminHandler) AssignDepartment(c *gin.Context) {
	var req dto.AssignDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid department payload"))
		return
	}
	complaint, err := h.complaints.AssignDepartment(c.Request.Context(), c.Param("id"), req.Department, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

// AddNote godoc
// @Summary Append an internal note
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.AddNoteRequest true "Note"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints/{id}/notes [post]
func (h *AdminHandler) AddNote(c *gin.Context) {
	var req dto.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid note payload"))
		return
	}
	complaint, err := h.complaints.AddNote(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}
