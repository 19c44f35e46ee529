package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/repository"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/jobs"
)

type complaintRepoStub struct {
	mu         sync.Mutex
	complaints map[string]*models.Complaint
	lastFilter models.ComplaintFilter
	createErr  error
	// staleGuard makes the next ApplyMutation miss its status guard.
	staleGuard bool
}

func newComplaintRepoStub() *complaintRepoStub {
	return &complaintRepoStub{complaints: map[string]*models.Complaint{}}
}

func (r *complaintRepoStub) Create(_ context.Context, c *models.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.complaints[c.ID] = c.Clone()
	return nil
}

func (r *complaintRepoStub) GetByID(_ context.Context, id string) (*models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c.Clone(), nil
}

func (r *complaintRepoStub) List(_ context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	out := make([]models.Complaint, 0)
	for _, c := range r.complaints {
		if filter.SubmitterID != "" && c.SubmitterID != filter.SubmitterID {
			continue
		}
		out = append(out, *c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *complaintRepoStub) ApplyMutation(_ context.Context, p repository.MutationParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[p.ComplaintID]
	if !ok || c.Status != p.ExpectedStatus || r.staleGuard {
		r.staleGuard = false
		return sql.ErrNoRows
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Department != nil {
		c.Department = *p.Department
	}
	if p.Event != nil {
		c.StatusHistory = append(c.StatusHistory, *p.Event)
	}
	if p.Note != nil {
		c.Notes = append(c.Notes, *p.Note)
	}
	c.UpdatedAt = p.UpdatedAt
	return nil
}

func (r *complaintRepoStub) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.complaints[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.complaints, id)
	return nil
}

func (r *complaintRepoStub) Reprioritize(_ context.Context, id string, score int, band models.PriorityBand, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok || c.Status != models.StatusPending {
		return sql.ErrNoRows
	}
	c.PriorityScore, c.PriorityBand = score, band
	return nil
}

func (r *complaintRepoStub) AttachVector(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.VectorRef = &ref
	return nil
}

type notifierStub struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (n *notifierStub) Emit(_ context.Context, e models.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *notifierStub) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type removerStub struct{ removed []string }

func (r *removerStub) Remove(_ context.Context, id string) { r.removed = append(r.removed, id) }

var (
	citizen   = models.Actor{ID: "citizen-1", Role: models.RoleCitizen}
	neighbour = models.Actor{ID: "citizen-2", Role: models.RoleCitizen}
	admin     = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	collector = models.Actor{ID: "collector-1", Role: models.RoleCollector}
)

func newTestComplaintService(t *testing.T) (*ComplaintService, *complaintRepoStub, *notifierStub) {
	t.Helper()
	repo := newComplaintRepoStub()
	notifier := &notifierStub{}
	svc := NewComplaintService(repo, defaultTaxonomy(t), nil, WithNotifier(notifier))
	return svc, repo, notifier
}

func createParams() models.CreateComplaintParams {
	return models.CreateComplaintParams{
		Draft: models.SubmissionDraft{
			Title:      "Streetlight out on Main St",
			Body:       "The streetlight on Main St has been out for a week",
			SourceKind: models.SourceText,
		},
		Classification: models.ClassificationResult{
			Category:   models.CategoryInfrastructure,
			Urgency:    models.UrgencyHigh,
			Department: "Electricity Board",
			Confidence: 0.8,
			Backend:    "rules",
		},
		Priority:            models.PriorityInfo{Score: 55, Band: models.BandMedium},
		EstimatedResolution: "5 days",
		Submitter:           citizen,
	}
}

func mustCreate(t *testing.T, svc *ComplaintService) *models.Complaint {
	t.Helper()
	c, err := svc.Create(context.Background(), createParams())
	require.NoError(t, err)
	return c
}

func TestComplaintServiceCreate(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)

	c := mustCreate(t, svc)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "Electricity Board", c.Department)
	require.Len(t, c.StatusHistory, 1)
	assert.Equal(t, models.EventCreated, c.StatusHistory[0].Kind)
	assert.NoError(t, c.VerifyHistory())
	assert.Contains(t, repo.complaints, c.ID)
	assert.Equal(t, []models.NotificationKind{models.NotifyCreated}, notifier.kinds())
	assert.Equal(t, c.ID, notifier.events[0].ComplaintID)
}

func TestComplaintServiceCreateValidation(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)

	params := createParams()
	params.Draft.Body = " "
	params.Submitter = models.Actor{}
	_, err := svc.Create(context.Background(), params)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)
	assert.ElementsMatch(t, []string{"description", "submitter"}, appErrors.FromError(err).Details["fields"])

	params = createParams()
	params.Classification.Department = "Ministry of Magic"
	_, err = svc.Create(context.Background(), params)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)

	assert.Empty(t, repo.complaints)
	assert.Empty(t, notifier.events)
}

func TestComplaintServiceCreateCancelledLeavesNoTrace(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, createParams())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.complaints)
	assert.Empty(t, notifier.events)
}

func TestComplaintServiceLifecycle(t *testing.T) {
	svc, _, notifier := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	c, err := svc.Transition(ctx, c.ID, models.StatusInProgress, collector, "crew dispatched")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)

	c, err = svc.Transition(ctx, c.ID, models.StatusResolved, collector, "")
	require.NoError(t, err)

	c, err = svc.Reopen(ctx, c.ID, admin, "light failed again")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	last := c.LastEvent()
	assert.Equal(t, models.EventReopen, last.Kind)
	assert.Equal(t, "light failed again", *last.Note)

	require.Len(t, c.StatusHistory, 4)
	for i, e := range c.StatusHistory {
		assert.Equal(t, i+1, e.Seq)
	}
	assert.NoError(t, c.VerifyHistory())
	assert.Equal(t, []models.NotificationKind{
		models.NotifyCreated, models.NotifyStatusChanged, models.NotifyStatusChanged, models.NotifyReopened,
	}, notifier.kinds())
	assert.Equal(t, models.StatusResolved, notifier.events[3].PreviousStatus)
}

func TestComplaintServiceRejectsIllegalTransitions(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Transition(ctx, c.ID, models.StatusResolved, admin, "")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.Transition(ctx, c.ID, models.StatusPending, admin, "")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.Transition(ctx, c.ID, models.StatusInProgress, admin, "")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, c.ID, models.StatusResolved, admin, "")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, c.ID, models.StatusPending, admin, "")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.Reopen(ctx, c.ID, admin, " ")
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)

	stored := repo.complaints[c.ID]
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Len(t, stored.StatusHistory, 3)
	assert.Len(t, notifier.events, 3)
}

func TestComplaintServiceReopenRequiresResolved(t *testing.T) {
	svc, _, _ := newTestComplaintService(t)
	c := mustCreate(t, svc)

	_, err := svc.Reopen(context.Background(), c.ID, admin, "please look again")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestComplaintServiceMutationsRequireStaff(t *testing.T) {
	svc, _, _ := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Transition(ctx, c.ID, models.StatusInProgress, citizen, "")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.AddNote(ctx, c.ID, models.Actor{}, "x")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestComplaintServiceConcurrentTransitionsSerialize(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)
	c := mustCreate(t, svc)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(context.Background(), c.ID, models.StatusInProgress, admin, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, repo.complaints[c.ID].StatusHistory, 2)
	assert.Len(t, notifier.events, 2)
}

func TestComplaintServiceConflictingTransitionsSerialize(t *testing.T) {
	for i := 0; i < 20; i++ {
		svc, repo, _ := newTestComplaintService(t)
		c := mustCreate(t, svc)

		var (
			wg       sync.WaitGroup
			start    = make(chan struct{})
			progress error
			reject   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, progress = svc.Transition(context.Background(), c.ID, models.StatusInProgress, admin, "")
		}()
		go func() {
			defer wg.Done()
			<-start
			_, reject = svc.Transition(context.Background(), c.ID, models.StatusRejected, collector, "")
		}()
		close(start)
		wg.Wait()

		require.NoError(t, reject)
		stored := repo.complaints[c.ID]
		require.NoError(t, stored.VerifyHistory())
		assert.Equal(t, models.StatusRejected, stored.Status)
		if progress == nil {
			require.Len(t, stored.StatusHistory, 3)
			assert.Equal(t, models.StatusInProgress, stored.StatusHistory[1].Status)
			assert.Equal(t, models.StatusRejected, stored.StatusHistory[2].Status)
		} else {
			assert.ErrorIs(t, progress, appErrors.ErrInvalidTransition)
			require.Len(t, stored.StatusHistory, 2)
			assert.Equal(t, models.StatusRejected, stored.StatusHistory[1].Status)
		}
	}
}

type blockingSink struct{ release chan struct{} }

func (b *blockingSink) Name() string { return "log" }

func (b *blockingSink) Deliver(ctx context.Context, _ models.NotificationEvent) error {
	<-b.release
	return nil
}

func TestComplaintServiceMutationDoesNotWaitForFullQueue(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	var dispatcher *NotificationDispatcher
	queue := jobs.NewQueue("notify", func(ctx context.Context, job jobs.Job) error {
		return dispatcher.Handle(ctx, job)
	}, jobs.QueueConfig{Workers: 1, BufferSize: 1})
	dispatcher = NewNotificationDispatcher(queue, nil, nil, sink)
	queue.Start(context.Background())
	defer queue.Stop(time.Second)
	defer close(sink.release)

	svc := NewComplaintService(newComplaintRepoStub(), defaultTaxonomy(t), nil, WithNotifier(dispatcher))
	c := mustCreate(t, svc)
	_, err := svc.AddNote(context.Background(), c.ID, collector, "crew notified")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := svc.AddNote(ctx, c.ID, collector, "second visit booked")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("mutation waited on the notification queue")
	}
}

func TestComplaintServiceGuardMissIsConflict(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)
	c := mustCreate(t, svc)
	repo.staleGuard = true

	_, err := svc.Transition(context.Background(), c.ID, models.StatusInProgress, admin, "")
	require.ErrorIs(t, err, appErrors.ErrConcurrentMutation)
	assert.Len(t, notifier.events, 1)
}

func TestComplaintServiceAssignDepartment(t *testing.T) {
	svc, _, notifier := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	updated, err := svc.AssignDepartment(ctx, c.ID, "public works", admin)
	require.NoError(t, err)
	assert.Equal(t, "Public Works", updated.Department)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Len(t, updated.StatusHistory, 1)
	require.Len(t, updated.Notes, 1)
	assert.Contains(t, updated.Notes[0].Text, "Electricity Board")
	assert.Equal(t, models.NotifyDepartmentAssigned, notifier.events[1].Kind)
	assert.Equal(t, "Public Works", notifier.events[1].Department)

	_, err = svc.AssignDepartment(ctx, c.ID, "Public Works", admin)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)
	_, err = svc.AssignDepartment(ctx, c.ID, "Hogwarts", admin)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = svc.Transition(ctx, c.ID, models.StatusRejected, admin, "duplicate")
	require.NoError(t, err)
	_, err = svc.AssignDepartment(ctx, c.ID, "Water Department", admin)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestComplaintServiceAddNoteKeepsStatus(t *testing.T) {
	svc, _, notifier := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.AddNote(ctx, c.ID, collector, "called the resident")
	require.NoError(t, err)
	updated, err := svc.AddNote(ctx, c.ID, collector, "site visit booked")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, updated.Status)
	require.Len(t, updated.Notes, 2)
	assert.Equal(t, 1, updated.Notes[0].Seq)
	assert.Equal(t, 2, updated.Notes[1].Seq)
	assert.Len(t, updated.StatusHistory, 1)
	assert.Equal(t, models.NotifyNoteAdded, notifier.events[2].Kind)

	_, err = svc.AddNote(ctx, c.ID, collector, "   ")
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestComplaintServiceTimestampsNeverGoBackwards(t *testing.T) {
	repo := newComplaintRepoStub()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewComplaintService(repo, defaultTaxonomy(t), nil, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	c, err := svc.Create(ctx, createParams())
	require.NoError(t, err)

	clock = clock.Add(-time.Hour)
	c, err = svc.Transition(ctx, c.ID, models.StatusInProgress, admin, "")
	require.NoError(t, err)
	assert.False(t, c.StatusHistory[1].Timestamp.Before(c.StatusHistory[0].Timestamp))
	assert.NoError(t, c.VerifyHistory())
}

func TestComplaintServiceGetScopesCitizens(t *testing.T) {
	svc, _, _ := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	got, err := svc.Get(ctx, c.ID, citizen)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.Get(ctx, c.ID, neighbour)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Get(ctx, c.ID, collector)
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.NewString(), admin)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Get(ctx, "not-a-uuid", admin)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplaintServiceGetUsesCache(t *testing.T) {
	repo := newComplaintRepoStub()
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewComplaintService(repo, defaultTaxonomy(t), nil, WithComplaintCache(cache))
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Get(ctx, c.ID, admin)
	require.NoError(t, err)
	assert.True(t, cacheRepo.has(complaintCacheKey+c.ID))

	_, err = svc.Transition(ctx, c.ID, models.StatusInProgress, admin, "")
	require.NoError(t, err)
	assert.False(t, cacheRepo.has(complaintCacheKey+c.ID))

	got, err := svc.Get(ctx, c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

// pausingRepo holds the first GetByID after it has read the row.
type pausingRepo struct {
	*complaintRepoStub
	once    sync.Once
	loaded  chan struct{}
	proceed chan struct{}
}

func (p *pausingRepo) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	c, err := p.complaintRepoStub.GetByID(ctx, id)
	p.once.Do(func() {
		close(p.loaded)
		<-p.proceed
	})
	return c, err
}

func TestComplaintServiceGetCacheFillCannotOutliveDelete(t *testing.T) {
	repo := &pausingRepo{complaintRepoStub: newComplaintRepoStub(), loaded: make(chan struct{}), proceed: make(chan struct{})}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewComplaintService(repo, defaultTaxonomy(t), nil, WithComplaintCache(cache))
	ctx := context.Background()
	c := mustCreate(t, svc)

	read := make(chan error, 1)
	go func() {
		_, err := svc.Get(ctx, c.ID, admin)
		read <- err
	}()
	<-repo.loaded

	deleted := make(chan error, 1)
	go func() { deleted <- svc.Delete(ctx, c.ID, admin) }()
	time.Sleep(20 * time.Millisecond)
	close(repo.proceed)

	require.NoError(t, <-read)
	require.NoError(t, <-deleted)
	assert.False(t, cacheRepo.has(complaintCacheKey+c.ID))
	_, err := svc.Get(ctx, c.ID, admin)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComplaintServiceListScopesCitizens(t *testing.T) {
	svc, repo, _ := newTestComplaintService(t)
	ctx := context.Background()
	mustCreate(t, svc)
	other := createParams()
	other.Submitter = neighbour
	_, err := svc.Create(ctx, other)
	require.NoError(t, err)

	items, page, err := svc.List(ctx, dto.ComplaintQuery{}, citizen)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "citizen-1", repo.lastFilter.SubmitterID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	items, page, err = svc.List(ctx, dto.ComplaintQuery{Page: 1, PageSize: 500}, admin)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "", repo.lastFilter.SubmitterID)
}

func TestComplaintServiceDelete(t *testing.T) {
	repo := newComplaintRepoStub()
	remover := &removerStub{}
	svc := NewComplaintService(repo, defaultTaxonomy(t), nil, WithIndexRemover(remover))
	ctx := context.Background()

	c, err := svc.Create(ctx, createParams())
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(ctx, c.ID, neighbour), appErrors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, c.ID, collector), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, c.ID, citizen))
	assert.Empty(t, repo.complaints)
	assert.Equal(t, []string{c.ID}, remover.removed)

	c, err = svc.Create(ctx, createParams())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, c.ID, admin))
	require.ErrorIs(t, svc.Delete(ctx, c.ID, admin), appErrors.ErrNotFound)
}

func TestComplaintServiceReprioritizeAndAttachVector(t *testing.T) {
	svc, repo, _ := newTestComplaintService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	updated, err := svc.Reprioritize(ctx, c.ID, models.PriorityInfo{Score: 61, Band: models.BandMedium})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 61, repo.complaints[c.ID].PriorityScore)

	require.NoError(t, svc.AttachVector(ctx, c.ID, "ref-1"))
	assert.Equal(t, "ref-1", *repo.complaints[c.ID].VectorRef)
	require.ErrorIs(t, svc.AttachVector(ctx, uuid.NewString(), "ref-2"), appErrors.ErrNotFound)

	_, err = svc.Transition(ctx, c.ID, models.StatusInProgress, admin, "")
	require.NoError(t, err)
	updated, err = svc.Reprioritize(ctx, c.ID, models.PriorityInfo{Score: 70, Band: models.BandMedium})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestComplaintServiceCreateRepositoryError(t *testing.T) {
	svc, repo, notifier := newTestComplaintService(t)
	repo.createErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), createParams())
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, notifier.events)
}

func (r *complaintRepoStub) Refs(_ context.Context, ids []string) (map[string]models.ComplaintRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]models.ComplaintRef, len(ids))
	for _, id := range ids {
		if c, ok := r.complaints[id]; ok {
			out[id] = models.ComplaintRef{ID: c.ID, Title: c.Title, Status: c.Status}
		}
	}
	return out, nil
}
