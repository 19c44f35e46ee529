package dto

import "github.com/bhoomash/publicwayservice-sub000/internal/models"

// SubmitComplaintRequest is the free-text intake payload.
type SubmitComplaintRequest struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Category     string `json:"category"`
	Urgency      string `json:"urgency"`
	Location     string `json:"location"`
	ContactPhone string `json:"contactPhone"`
	ContactEmail string `json:"contactEmail"`
}

// SubmitDocumentRequest is the document intake payload. Text extraction happens upstream.
type SubmitDocumentRequest struct {
	AttachmentRef string `json:"attachmentRef"`
	ExtractedText string `json:"extractedText"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	Urgency       string `json:"urgency"`
	Location      string `json:"location"`
	ContactPhone  string `json:"contactPhone"`
	ContactEmail  string `json:"contactEmail"`
}

// SubmissionInput is the source-tagged raw input accepted by the normalizer.
type SubmissionInput struct {
	Kind          models.SourceKind
	Title         string
	Body          string
	AttachmentRef string
	Category      string
	Urgency       string
	Location      string
	ContactPhone  string
	ContactEmail  string
}

// TextInput converts a text request into a normalizer input.
func (r SubmitComplaintRequest) TextInput() SubmissionInput {
	return SubmissionInput{
		Kind:         models.SourceText,
		Title:        r.Title,
		Body:         r.Body,
		Category:     r.Category,
		Urgency:      r.Urgency,
		Location:     r.Location,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
	}
}

// DocumentInput converts a document request into a normalizer input.
func (r SubmitDocumentRequest) DocumentInput() SubmissionInput {
	return SubmissionInput{
		Kind:          models.SourceDocument,
		Title:         r.Title,
		Body:          r.ExtractedText,
		AttachmentRef: r.AttachmentRef,
		Category:      r.Category,
		Urgency:       r.Urgency,
		Location:      r.Location,
		ContactPhone:  r.ContactPhone,
		ContactEmail:  r.ContactEmail,
	}
}

// IntakeResult is returned after a successful submission.
type IntakeResult struct {
	ComplaintID         string                   `json:"complaintId"`
	Status              models.ComplaintStatus   `json:"status"`
	PriorityScore       int                      `json:"priorityScore"`
	PriorityBand        models.PriorityBand      `json:"priorityBand"`
	Department          string                   `json:"department"`
	Category            models.Category          `json:"category"`
	Urgency             models.Urgency           `json:"urgency"`
	Confidence          float64                  `json:"confidence"`
	Summary             string                   `json:"summary"`
	EstimatedResolution string                   `json:"estimatedResolution"`
	SimilarComplaints   []models.SimilarityMatch `json:"similarComplaints"`
	SimilarityDegraded  bool                     `json:"similarityDegraded,omitempty"`
}

// SimilarPreviewResult lists duplicates for a draft without persisting anything.
type SimilarPreviewResult struct {
	SimilarComplaints []models.SimilarityMatch `json:"similarComplaints"`
}

// UpdateStatusRequest moves a complaint along its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ReopenRequest reopens a resolved complaint.
type ReopenRequest struct {
	Reason string `json:"reason"`
}

// AssignDepartmentRequest routes a complaint to another department.
type AssignDepartmentRequest struct {
	Department string `json:"department"`
}

// AddNoteRequest appends an internal note.
type AddNoteRequest struct {
	Text string `json:"text"`
}

// ComplaintQuery mirrors supported listing filters.
type ComplaintQuery struct {
	Status     []models.ComplaintStatus
	Category   models.Category
	Department string
	Band       models.PriorityBand
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
