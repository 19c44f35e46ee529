package models

import "time"

// NotificationKind enumerates the audit-worthy changes published downstream.
type NotificationKind string

const (
	NotifyCreated            NotificationKind = "created"
	NotifyStatusChanged      NotificationKind = "status_changed"
	NotifyReopened           NotificationKind = "reopened"
	NotifyDepartmentAssigned NotificationKind = "department_assigned"
	NotifyNoteAdded          NotificationKind = "note_added"
)

// NotificationEvent is published once per mutation. ID equals the mutation id
// so sinks can deduplicate redeliveries.
type NotificationEvent struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	ComplaintID    string           `json:"complaintId"`
	SubmitterID    string           `json:"submitterId"`
	Actor          string           `json:"actor"`
	Status         ComplaintStatus  `json:"status"`
	PreviousStatus ComplaintStatus  `json:"previousStatus,omitempty"`
	Department     string           `json:"department,omitempty"`
	Note           string           `json:"note,omitempty"`
	Title          string           `json:"title,omitempty"`
	OccurredAt     time.Time        `json:"occurredAt"`
}
