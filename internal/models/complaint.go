package models

import (
	"fmt"
	"time"
)

// Complaint is the aggregate root of the triage pipeline.
type Complaint struct {
	ID                  string          `db:"id" json:"id"`
	Title               string          `db:"title" json:"title"`
	Description         string          `db:"description" json:"description"`
	Category            Category        `db:"category" json:"category"`
	Urgency             Urgency         `db:"urgency" json:"urgency"`
	Department          string          `db:"department" json:"department"`
	Location            string          `db:"location" json:"location"`
	ContactPhone        string          `db:"contact_phone" json:"contactPhone,omitempty"`
	ContactEmail        string          `db:"contact_email" json:"contactEmail,omitempty"`
	PriorityScore       int             `db:"priority_score" json:"priorityScore"`
	PriorityBand        PriorityBand    `db:"priority_band" json:"priorityBand"`
	Status              ComplaintStatus `db:"status" json:"status"`
	SubmitterID         string          `db:"submitter_id" json:"submitterId"`
	SourceKind          SourceKind      `db:"source_kind" json:"sourceKind"`
	AttachmentRef       *string         `db:"attachment_ref" json:"attachmentRef,omitempty"`
	Confidence          float64         `db:"confidence" json:"confidence"`
	Summary             string          `db:"summary" json:"summary"`
	ClassifierBackend   string          `db:"classifier_backend" json:"classifierBackend"`
	DuplicateCount      int             `db:"duplicate_count" json:"duplicateCount"`
	EstimatedResolution string          `db:"estimated_resolution" json:"estimatedResolution"`
	VectorRef           *string         `db:"vector_ref" json:"vectorRef,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`

	StatusHistory []StatusEvent `db:"-" json:"statusHistory"`
	Notes         []Note        `db:"-" json:"notes"`
}

// StatusEvent is an immutable entry in a complaint's status history.
type StatusEvent struct {
	ComplaintID string          `db:"complaint_id" json:"-"`
	Seq         int             `db:"seq" json:"seq"`
	Kind        StatusEventKind `db:"kind" json:"kind"`
	Status      ComplaintStatus `db:"status" json:"status"`
	Note        *string         `db:"note" json:"note,omitempty"`
	Actor       string          `db:"actor" json:"actor"`
	Timestamp   time.Time       `db:"created_at" json:"timestamp"`
}

// Note is an immutable free-text annotation.
type Note struct {
	ComplaintID string    `db:"complaint_id" json:"-"`
	Seq         int       `db:"seq" json:"seq"`
	Text        string    `db:"body" json:"text"`
	Actor       string    `db:"actor" json:"actor"`
	Timestamp   time.Time `db:"created_at" json:"timestamp"`
}

// LastEvent returns the newest status event, or nil for an empty history.
func (c *Complaint) LastEvent() *StatusEvent {
	if len(c.StatusHistory) == 0 {
		return nil
	}
	return &c.StatusHistory[len(c.StatusHistory)-1]
}

// OwnedBy reports whether actorID submitted the complaint.
func (c *Complaint) OwnedBy(actorID string) bool {
	return actorID != "" && c.SubmitterID == actorID
}

// Clone returns a deep copy safe to hand to callers.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	out.StatusHistory = append([]StatusEvent(nil), c.StatusHistory...)
	out.Notes = append([]Note(nil), c.Notes...)
	if c.AttachmentRef != nil {
		ref := *c.AttachmentRef
		out.AttachmentRef = &ref
	}
	if c.VectorRef != nil {
		ref := *c.VectorRef
		out.VectorRef = &ref
	}
	return &out
}

// CreateComplaintParams carries everything the store needs to persist a new complaint.
type CreateComplaintParams struct {
	Draft               SubmissionDraft
	Classification      ClassificationResult
	Priority            PriorityInfo
	DuplicateCount      int
	EstimatedResolution string
	Submitter           Actor
}

// ComplaintFilter constrains listing queries.
type ComplaintFilter struct {
	Status      []ComplaintStatus
	Category    Category
	Department  string
	SubmitterID string
	Band        PriorityBand
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// StaleComplaint is the minimal projection used by age re-scoring.
type StaleComplaint struct {
	ID             string    `db:"id"`
	Category       Category  `db:"category"`
	Urgency        Urgency   `db:"urgency"`
	DuplicateCount int       `db:"duplicate_count"`
	PriorityScore  int       `db:"priority_score"`
	CreatedAt      time.Time `db:"created_at"`
}

// IndexableComplaint is the projection used to (re)build the similarity index.
type IndexableComplaint struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

// VerifyHistory checks the audit invariants of c: the first event is the
// pending creation event, every later event follows a legal edge (or is a
// reopen from resolved), sequences and timestamps never go backwards, and
// the current status equals the last event.
func (c *Complaint) VerifyHistory() error {
	if len(c.StatusHistory) == 0 {
		return fmt.Errorf("complaint %s has no history", c.ID)
	}
	first := c.StatusHistory[0]
	if first.Kind != EventCreated || first.Status != StatusPending {
		return fmt.Errorf("complaint %s: first event is %s/%s, want created/pending", c.ID, first.Kind, first.Status)
	}
	for i := 1; i < len(c.StatusHistory); i++ {
		prev, cur := c.StatusHistory[i-1], c.StatusHistory[i]
		if cur.Seq <= prev.Seq {
			return fmt.Errorf("complaint %s: event seq %d not after %d", c.ID, cur.Seq, prev.Seq)
		}
		if cur.Timestamp.Before(prev.Timestamp) {
			return fmt.Errorf("complaint %s: event %d timestamp goes backwards", c.ID, cur.Seq)
		}
		switch cur.Kind {
		case EventTransition:
			if !CanTransition(prev.Status, cur.Status) {
				return fmt.Errorf("complaint %s: illegal edge %s -> %s at seq %d", c.ID, prev.Status, cur.Status, cur.Seq)
			}
		case EventReopen:
			if prev.Status != StatusResolved || cur.Status != StatusInProgress {
				return fmt.Errorf("complaint %s: illegal reopen %s -> %s at seq %d", c.ID, prev.Status, cur.Status, cur.Seq)
			}
		default:
			return fmt.Errorf("complaint %s: unexpected %s event at seq %d", c.ID, cur.Kind, cur.Seq)
		}
	}
	if last := c.LastEvent(); last.Status != c.Status {
		return fmt.Errorf("complaint %s: status %s disagrees with history %s", c.ID, c.Status, last.Status)
	}
	for i := 1; i < len(c.Notes); i++ {
		if c.Notes[i].Seq <= c.Notes[i-1].Seq {
			return fmt.Errorf("complaint %s: note seq %d not after %d", c.ID, c.Notes[i].Seq, c.Notes[i-1].Seq)
		}
	}
	return nil
}
