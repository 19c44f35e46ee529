package models

// Contact holds optional citizen contact details.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// SubmissionDraft is the canonical, normalised form of any intake input.
type SubmissionDraft struct {
	Title            string
	Body             string
	DeclaredCategory *Category
	DeclaredUrgency  *Urgency
	Location         string
	Contact          Contact
	SourceKind       SourceKind
	AttachmentRef    *string
}

// EmbeddingText is the text indexed for similarity search.
func (d SubmissionDraft) EmbeddingText() string {
	if d.Title == "" {
		return d.Body
	}
	return d.Title + "\n" + d.Body
}

// ClassificationResult is the classifier's verdict for a draft.
type ClassificationResult struct {
	Category   Category             `json:"category"`
	Urgency    Urgency              `json:"urgency"`
	Department string               `json:"department"`
	Confidence float64              `json:"confidence"`
	Summary    string               `json:"summary"`
	Backend    string               `json:"backend"`
	Scores     map[Category]float64 `json:"scores,omitempty"`
}

// SimilarityMatch is a near-duplicate found in the index.
type SimilarityMatch struct {
	ComplaintID string          `json:"complaintId"`
	Title       string          `json:"title,omitempty"`
	Score       float64         `json:"score"`
	Status      ComplaintStatus `json:"status"`
}

// PriorityInfo is the scorer output with its additive components.
type PriorityInfo struct {
	Score      int          `json:"score"`
	Band       PriorityBand `json:"band"`
	Urgency    int          `json:"urgency"`
	Category   int          `json:"category"`
	Duplicates int          `json:"duplicates"`
	Age        int          `json:"age"`
}

// ComplaintRef is the current identity and status of an indexed complaint.
type ComplaintRef struct {
	ID     string          `db:"id"`
	Title  string          `db:"title"`
	Status ComplaintStatus `db:"status"`
}

// VectorRecord is a persisted embedding.
type VectorRecord struct {
	ComplaintID string
	VectorRef   string
	Model       string
	Embedding   []float32
}
