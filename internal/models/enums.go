package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is wrapped by the canonical parsers when input matches no enum member.
var ErrUnknownValue = errors.New("unknown value")

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
)

// ComplaintStatuses lists every lifecycle state.
var ComplaintStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

var transitions = map[ComplaintStatus][]ComplaintStatus{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
}

// ParseComplaintStatus is the single canonical parser for status input.
// It accepts any case and treats spaces and hyphens as underscores.
func ParseComplaintStatus(raw string) (ComplaintStatus, error) {
	key := normaliseKey(raw, "_")
	for _, s := range ComplaintStatuses {
		if string(s) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("status %q: %w", raw, ErrUnknownValue)
}

// IsTerminal reports whether no ordinary transition leaves s.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
// Reopening a resolved complaint is a separate, explicit operation.
func CanTransition(from, to ComplaintStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Category is the closed set of complaint categories.
type Category string

const (
	CategoryInfrastructure Category = "Infrastructure"
	CategoryUtilities      Category = "Utilities"
	CategoryTransportation Category = "Transportation"
	CategoryPublicSafety   Category = "Public Safety"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEducation      Category = "Education"
	CategoryEnvironmental  Category = "Environmental"
	CategoryCorruption     Category = "Corruption"
	CategoryAdministrative Category = "Administrative"
	CategoryOther          Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryInfrastructure,
	CategoryUtilities,
	CategoryTransportation,
	CategoryPublicSafety,
	CategoryHealthcare,
	CategoryEducation,
	CategoryEnvironmental,
	CategoryCorruption,
	CategoryAdministrative,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"environment": CategoryEnvironmental,
	"health":      CategoryHealthcare,
	"transport":   CategoryTransportation,
	"safety":      CategoryPublicSafety,
	"utility":     CategoryUtilities,
	"admin":       CategoryAdministrative,
}

// ParseCategory is the single canonical parser for category input.
func ParseCategory(raw string) (Category, error) {
	key := normaliseKey(raw, "")
	for _, c := range Categories {
		if normaliseKey(string(c), "") == key {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("category %q: %w", raw, ErrUnknownValue)
}

// Urgency expresses how quickly a complaint needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Urgencies lists the urgency levels in ascending order.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent}

var urgencyAliases = map[string]Urgency{
	"critical":  UrgencyUrgent,
	"emergency": UrgencyUrgent,
	"normal":    UrgencyMedium,
}

// ParseUrgency is the single canonical parser for urgency input.
func ParseUrgency(raw string) (Urgency, error) {
	key := normaliseKey(raw, "")
	for _, u := range Urgencies {
		if string(u) == key {
			return u, nil
		}
	}
	if u, ok := urgencyAliases[key]; ok {
		return u, nil
	}
	return "", fmt.Errorf("urgency %q: %w", raw, ErrUnknownValue)
}

// Rank orders urgencies from 1 (low) to 4 (urgent); unknown values rank 0.
func (u Urgency) Rank() int {
	for i, v := range Urgencies {
		if v == u {
			return i + 1
		}
	}
	return 0
}

// PriorityBand buckets a priority score.
type PriorityBand string

const (
	BandLow    PriorityBand = "low"
	BandMedium PriorityBand = "medium"
	BandHigh   PriorityBand = "high"
)

// SourceKind records how a submission reached the service.
type SourceKind string

const (
	SourceText     SourceKind = "text"
	SourceDocument SourceKind = "document"
)

// StatusEventKind distinguishes history entries.
type StatusEventKind string

const (
	EventCreated    StatusEventKind = "created"
	EventTransition StatusEventKind = "transition"
	EventReopen     StatusEventKind = "reopen"
)

func normaliseKey(raw, sep string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", sep, "-", sep, "_", sep).Replace(key)
	return key
}
