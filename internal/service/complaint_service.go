package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/repository"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

const (
	maxNoteLength     = 2000
	complaintCacheKey = "complaint:"
)

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error)
	ApplyMutation(ctx context.Context, params repository.MutationParams) error
	Delete(ctx context.Context, id string) error
	Reprioritize(ctx context.Context, id string, score int, band models.PriorityBand, at time.Time) error
	AttachVector(ctx context.Context, id, vectorRef string) error
}

// Notifier receives one event per committed mutation.
type Notifier interface {
	Emit(ctx context.Context, event models.NotificationEvent)
}

type indexRemover interface {
	Remove(ctx context.Context, complaintID string)
}

type transitionMetrics interface {
	ObserveTransition(status string)
}

// ComplaintService owns the complaint lifecycle: creation, status changes,
// routing, notes and deletion, plus the audit trail that records them.
type ComplaintService struct {
	repo     complaintRepository
	taxonomy *Taxonomy
	cache    *CacheService
	notifier Notifier
	index    indexRemover
	metrics  transitionMetrics
	locks    *keyedLock
	logger   *zap.Logger
	now      func() time.Time
}

// ComplaintOption customises the complaint service.
type ComplaintOption func(*ComplaintService)

// WithComplaintCache enables snapshot caching for Get.
func WithComplaintCache(cache *CacheService) ComplaintOption {
	return func(s *ComplaintService) { s.cache = cache }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) ComplaintOption {
	return func(s *ComplaintService) { s.notifier = n }
}

// WithIndexRemover drops deleted complaints from the similarity index.
func WithIndexRemover(idx indexRemover) ComplaintOption {
	return func(s *ComplaintService) { s.index = idx }
}

// WithTransitionMetrics counts status changes.
func WithTransitionMetrics(m transitionMetrics) ComplaintOption {
	return func(s *ComplaintService) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ComplaintOption {
	return func(s *ComplaintService) { s.now = now }
}

// NewComplaintService constructs the complaint store.
func NewComplaintService(repo complaintRepository, taxonomy *Taxonomy, logger *zap.Logger, opts ...ComplaintOption) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ComplaintService{
		repo:     repo,
		taxonomy: taxonomy,
		locks:    newKeyedLock(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new pending complaint together with its creation event.
func (s *ComplaintService) Create(ctx context.Context, params models.CreateComplaintParams) (*models.Complaint, error) {
	if err := validateCreate(params); err != nil {
		return nil, err
	}
	department, ok := s.taxonomy.CanonicalDepartment(params.Classification.Department)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown department %q", params.Classification.Department))
	}

	now := s.now().UTC()
	draft := params.Draft
	complaint := &models.Complaint{
		ID:                  uuid.NewString(),
		Title:               draft.Title,
		Description:         draft.Body,
		Category:            params.Classification.Category,
		Urgency:             params.Classification.Urgency,
		Department:          department,
		Location:            draft.Location,
		ContactPhone:        draft.Contact.Phone,
		ContactEmail:        draft.Contact.Email,
		PriorityScore:       params.Priority.Score,
		PriorityBand:        params.Priority.Band,
		Status:              models.StatusPending,
		SubmitterID:         params.Submitter.ID,
		SourceKind:          draft.SourceKind,
		AttachmentRef:       draft.AttachmentRef,
		Confidence:          params.Classification.Confidence,
		Summary:             params.Classification.Summary,
		ClassifierBackend:   params.Classification.Backend,
		DuplicateCount:      params.DuplicateCount,
		EstimatedResolution: params.EstimatedResolution,
		CreatedAt:           now,
		UpdatedAt:           now,
		StatusHistory: []models.StatusEvent{{
			Seq:       1,
			Kind:      models.EventCreated,
			Status:    models.StatusPending,
			Actor:     params.Submitter.ID,
			Timestamp: now,
		}},
		Notes: []models.Note{},
	}
	if complaint.SourceKind == "" {
		complaint.SourceKind = models.SourceText
	}

	// A caller that gave up before commit must leave no trace.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}
	complaint.StatusHistory[0].ComplaintID = complaint.ID

	s.emit(ctx, complaint, models.NotificationEvent{
		Kind:   models.NotifyCreated,
		Actor:  params.Submitter.ID,
		Status: models.StatusPending,
		Title:  complaint.Title,
	})
	s.logger.Info("complaint created",
		zap.String("complaint_id", complaint.ID),
		zap.String("category", string(complaint.Category)),
		zap.String("department", complaint.Department),
		zap.Int("priority", complaint.PriorityScore),
	)
	return complaint.Clone(), nil
}

// Get returns a complaint snapshot. Citizens only see their own complaints.
func (s *ComplaintService) Get(ctx context.Context, id string, actor models.Actor) (*models.Complaint, error) {
	if actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	var cached models.Complaint
	if hit, _ := s.cache.Get(ctx, complaintCacheKey+id, &cached); hit {
		if !canRead(&cached, actor) {
			return nil, appErrors.ErrNotFound
		}
		return &cached, nil
	}

	complaint, err := s.loadAndCache(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(complaint, actor) {
		return nil, appErrors.ErrNotFound
	}
	return complaint, nil
}

// List returns complaint summaries matching the query. Citizens are scoped to their own submissions.
func (s *ComplaintService) List(ctx context.Context, query dto.ComplaintQuery, actor models.Actor) ([]models.Complaint, *models.Pagination, error) {
	if actor.ID == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.ComplaintFilter{
		Status:     query.Status,
		Category:   query.Category,
		Department: query.Department,
		Band:       query.Band,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if !actor.Role.IsStaff() {
		filter.SubmitterID = actor.ID
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}

	complaints, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	return complaints, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Transition moves a complaint along a legal lifecycle edge.
func (s *ComplaintService) Transition(ctx context.Context, id string, to models.ComplaintStatus, actor models.Actor, note string) (*models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := models.ParseComplaintStatus(string(to)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown status %q", to))
	}
	note = strings.TrimSpace(note)
	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) (*pendingMutation, error) {
		if !models.CanTransition(c.Status, to) {
			return nil, invalidTransition(c.Status, to)
		}
		event := &models.StatusEvent{Kind: models.EventTransition, Status: to, Actor: actor.ID, Timestamp: now}
		if note != "" {
			event.Note = &note
		}
		return &pendingMutation{
			status: &to,
			event:  event,
			notification: models.NotificationEvent{
				Kind:           models.NotifyStatusChanged,
				Actor:          actor.ID,
				Status:         to,
				PreviousStatus: c.Status,
				Note:           note,
			},
		}, nil
	})
}

// Reopen moves a resolved complaint back to in_progress. A reason is required.
func (s *ComplaintService) Reopen(ctx context.Context, id string, actor models.Actor, reason string) (*models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "reopen reason is required")
	}
	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) (*pendingMutation, error) {
		if c.Status != models.StatusResolved {
			return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, "only resolved complaints can be reopened", map[string]interface{}{
				"from": c.Status,
			})
		}
		to := models.StatusInProgress
		return &pendingMutation{
			status: &to,
			event:  &models.StatusEvent{Kind: models.EventReopen, Status: to, Note: &reason, Actor: actor.ID, Timestamp: now},
			notification: models.NotificationEvent{
				Kind:           models.NotifyReopened,
				Actor:          actor.ID,
				Status:         to,
				PreviousStatus: c.Status,
				Note:           reason,
			},
		}, nil
	})
}

// AssignDepartment routes a non-terminal complaint to a catalog department and records an audit note.
func (s *ComplaintService) AssignDepartment(ctx context.Context, id, department string, actor models.Actor) (*models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	canonical, ok := s.taxonomy.CanonicalDepartment(department)
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidInput, fmt.Sprintf("unknown department %q", department), map[string]interface{}{
			"departments": s.taxonomy.Departments(),
		})
	}
	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) (*pendingMutation, error) {
		if c.Status.IsTerminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot reassign a %s complaint", c.Status))
		}
		if c.Department == canonical {
			return nil, appErrors.Clone(appErrors.ErrInvalidInput, "complaint is already assigned to "+canonical)
		}
		text := fmt.Sprintf("department reassigned from %s to %s", c.Department, canonical)
		return &pendingMutation{
			department: &canonical,
			note:       &models.Note{Text: text, Actor: actor.ID, Timestamp: now},
			notification: models.NotificationEvent{
				Kind:       models.NotifyDepartmentAssigned,
				Actor:      actor.ID,
				Status:     c.Status,
				Department: canonical,
				Note:       text,
			},
		}, nil
	})
}

// AddNote appends a free-text note. Status is never affected.
func (s *ComplaintService) AddNote(ctx context.Context, id string, actor models.Actor, text string) (*models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "note text is required")
	}
	if utf8.RuneCountInString(text) > maxNoteLength {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("note exceeds %d characters", maxNoteLength))
	}
	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) (*pendingMutation, error) {
		return &pendingMutation{
			note: &models.Note{Text: text, Actor: actor.ID, Timestamp: now},
			notification: models.NotificationEvent{
				Kind:   models.NotifyNoteAdded,
				Actor:  actor.ID,
				Status: c.Status,
				Note:   text,
			},
		}, nil
	})
}

// Delete removes a complaint with its history, notes and vector. Only the
// submitter or an admin may delete.
func (s *ComplaintService) Delete(ctx context.Context, id string, actor models.Actor) error {
	if actor.ID == "" {
		return appErrors.ErrUnauthorized
	}
	release := s.locks.Lock(id)
	defer release()

	complaint, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !complaint.OwnedBy(actor.ID) && actor.Role != models.RoleAdmin {
		if !canRead(complaint, actor) {
			return appErrors.ErrNotFound
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the submitter or an admin can delete a complaint")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete complaint")
	}
	if s.index != nil {
		s.index.Remove(ctx, id)
	}
	s.invalidate(ctx, id)
	s.logger.Info("complaint deleted", zap.String("complaint_id", id), zap.String("actor", actor.ID))
	return nil
}

// Reprioritize stores a recomputed priority for a pending complaint. It
// reports false when the complaint is no longer pending.
func (s *ComplaintService) Reprioritize(ctx context.Context, id string, info models.PriorityInfo) (bool, error) {
	release := s.locks.Lock(id)
	defer release()

	if err := s.repo.Reprioritize(ctx, id, info.Score, info.Band, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reprioritize complaint")
	}
	s.invalidate(ctx, id)
	return true, nil
}

// AttachVector records the similarity index handle on the complaint.
func (s *ComplaintService) AttachVector(ctx context.Context, id, vectorRef string) error {
	release := s.locks.Lock(id)
	defer release()

	if err := s.repo.AttachVector(ctx, id, vectorRef); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach vector")
	}
	s.invalidate(ctx, id)
	return nil
}

type pendingMutation struct {
	status       *models.ComplaintStatus
	department   *string
	event        *models.StatusEvent
	note         *models.Note
	notification models.NotificationEvent
}

// mutate runs one guarded write for id. The keyed lock serialises writers in
// this process; the status guard in SQL catches writers elsewhere.
// The notification is emitted after the lock is released.
func (s *ComplaintService) mutate(ctx context.Context, id string, build func(*models.Complaint, time.Time) (*pendingMutation, error)) (*models.Complaint, error) {
	complaint, notification, err := s.applyLocked(ctx, id, build)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, complaint, notification)
	return complaint.Clone(), nil
}

func (s *ComplaintService) applyLocked(ctx context.Context, id string, build func(*models.Complaint, time.Time) (*pendingMutation, error)) (*models.Complaint, models.NotificationEvent, error) {
	release := s.locks.Lock(id)
	defer release()

	var none models.NotificationEvent
	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, none, err
	}
	now := s.monotonicNow(complaint)
	m, err := build(complaint, now)
	if err != nil {
		return nil, none, err
	}
	if m.event != nil {
		m.event.Seq = nextEventSeq(complaint)
	}
	if m.note != nil {
		m.note.Seq = nextNoteSeq(complaint)
	}
	if err := ctx.Err(); err != nil {
		return nil, none, err
	}

	err = s.repo.ApplyMutation(ctx, repository.MutationParams{
		ComplaintID:    id,
		ExpectedStatus: complaint.Status,
		UpdatedAt:      now,
		Status:         m.status,
		Department:     m.department,
		Event:          m.event,
		Note:           m.note,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("complaint changed under a held lock",
				zap.String("complaint_id", id),
				zap.String("expected_status", string(complaint.Status)),
			)
			return nil, none, appErrors.Wrap(err, appErrors.ErrConcurrentMutation.Code, appErrors.ErrConcurrentMutation.Status, appErrors.ErrConcurrentMutation.Message)
		}
		return nil, none, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint")
	}

	if m.status != nil {
		complaint.Status = *m.status
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(*m.status))
		}
	}
	if m.department != nil {
		complaint.Department = *m.department
	}
	if m.event != nil {
		complaint.StatusHistory = append(complaint.StatusHistory, *m.event)
	}
	if m.note != nil {
		complaint.Notes = append(complaint.Notes, *m.note)
	}
	complaint.UpdatedAt = now

	s.invalidate(ctx, id)
	return complaint, m.notification, nil
}

func (s *ComplaintService) load(ctx context.Context, id string) (*models.Complaint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	return complaint, nil
}

// loadAndCache fills the snapshot cache under the complaint's lock so a fill
// can never land after a writer's invalidation.
func (s *ComplaintService) loadAndCache(ctx context.Context, id string) (*models.Complaint, error) {
	if !s.cache.Enabled() {
		return s.load(ctx, id)
	}
	release := s.locks.Lock(id)
	defer release()

	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, complaintCacheKey+id, complaint, 0)
	return complaint, nil
}

// monotonicNow never returns a time before the complaint's last recorded write.
func (s *ComplaintService) monotonicNow(c *models.Complaint) time.Time {
	now := s.now().UTC()
	latest := c.UpdatedAt
	if last := c.LastEvent(); last != nil && last.Timestamp.After(latest) {
		latest = last.Timestamp
	}
	if n := len(c.Notes); n > 0 && c.Notes[n-1].Timestamp.After(latest) {
		latest = c.Notes[n-1].Timestamp
	}
	if now.Before(latest) {
		return latest
	}
	return now
}

func (s *ComplaintService) emit(ctx context.Context, c *models.Complaint, event models.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	event.ID = uuid.NewString()
	event.ComplaintID = c.ID
	event.SubmitterID = c.SubmitterID
	if event.Title == "" {
		event.Title = c.Title
	}
	if event.Department == "" {
		event.Department = c.Department
	}
	event.OccurredAt = c.UpdatedAt
	s.notifier.Emit(context.WithoutCancel(ctx), event)
}

func (s *ComplaintService) invalidate(ctx context.Context, id string) {
	_ = s.cache.Delete(context.WithoutCancel(ctx), complaintCacheKey+id)
}

func nextEventSeq(c *models.Complaint) int {
	if last := c.LastEvent(); last != nil {
		return last.Seq + 1
	}
	return 1
}

func nextNoteSeq(c *models.Complaint) int {
	if n := len(c.Notes); n > 0 {
		return c.Notes[n-1].Seq + 1
	}
	return 1
}

func validateCreate(p models.CreateComplaintParams) error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(p.Draft.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.Draft.Body) == "" {
		missing = append(missing, "description")
	}
	if p.Submitter.ID == "" {
		missing = append(missing, "submitter")
	}
	if p.Classification.Category == "" {
		missing = append(missing, "category")
	}
	if p.Classification.Urgency == "" {
		missing = append(missing, "urgency")
	}
	if len(missing) > 0 {
		return appErrors.WithDetails(appErrors.ErrInvalidInput, "missing required complaint fields", map[string]interface{}{
			"fields": missing,
		})
	}
	if p.Priority.Score < 0 || p.Priority.Score > 100 {
		return appErrors.Clone(appErrors.ErrInvalidInput, "priority score out of range")
	}
	return nil
}

func invalidTransition(from, to models.ComplaintStatus) error {
	return appErrors.WithDetails(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move complaint from %s to %s", from, to), map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

func requireStaff(actor models.Actor) error {
	if actor.ID == "" {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "staff role required")
	}
	return nil
}

func canRead(c *models.Complaint, actor models.Actor) bool {
	return actor.Role.IsStaff() || c.OwnedBy(actor.ID)
}
