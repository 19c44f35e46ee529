package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/jobs"
	"github.com/bhoomash/publicwayservice-sub000/pkg/observability"
)

type draftClassifier interface {
	Classify(ctx context.Context, draft *models.SubmissionDraft) (*models.ClassificationResult, error)
}

type similarityIndex interface {
	FindSimilar(ctx context.Context, draft *models.SubmissionDraft) ([]models.SimilarityMatch, error)
	Index(ctx context.Context, complaintID, text string) (string, error)
}

type complaintWriter interface {
	Create(ctx context.Context, params models.CreateComplaintParams) (*models.Complaint, error)
	AttachVector(ctx context.Context, id, vectorRef string) error
}

type intakeMetrics interface {
	ObserveIntake(source, outcome string, duration time.Duration)
}

type indexPayload struct {
	ComplaintID string
	Text        string
}

// IntakeService turns raw submissions into triaged, persisted complaints.
type IntakeService struct {
	normalizer *Normalizer
	classifier draftClassifier
	index      similarityIndex
	scorer     *PriorityScorer
	store      complaintWriter
	queue      jobEnqueuer
	metrics    intakeMetrics
	logger     *zap.Logger
}

// NewIntakeService wires the intake pipeline.
func NewIntakeService(normalizer *Normalizer, classifier draftClassifier, index similarityIndex, scorer *PriorityScorer, store complaintWriter, queue jobEnqueuer, metrics intakeMetrics, logger *zap.Logger) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		normalizer: normalizer,
		classifier: classifier,
		index:      index,
		scorer:     scorer,
		store:      store,
		queue:      queue,
		metrics:    metrics,
		logger:     logger,
	}
}

// Submit normalises, classifies and scores a submission, then persists it.
// Classification and duplicate lookup run concurrently. A similarity outage
// degrades the result instead of failing it; a low-confidence classification
// is refused with nothing stored.
func (s *IntakeService) Submit(ctx context.Context, input dto.SubmissionInput, actor models.Actor) (*dto.IntakeResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "intake.submit")
	defer span.End()
	start := time.Now()
	source := string(input.Kind)
	if source == "" {
		source = string(models.SourceText)
	}

	if actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	draft, err := s.normalizer.Normalize(input)
	if err != nil {
		s.observe(source, "invalid", start)
		return nil, err
	}

	classification, matches, degraded, err := s.triage(ctx, draft)
	if err != nil {
		if errors.Is(err, appErrors.ErrLowConfidence) {
			s.observe(source, "rejected", start)
			s.logger.Info("submission refused", zap.String("submitter", actor.ID), zap.Error(err))
		} else {
			s.observe(source, "failed", start)
		}
		span.RecordError(err)
		return nil, err
	}

	priority := s.scorer.Score(*classification, len(matches), 0)
	estimate := s.scorer.EstimateResolution(classification.Category, classification.Urgency, priority.Score)

	complaint, err := s.store.Create(ctx, models.CreateComplaintParams{
		Draft:               *draft,
		Classification:      *classification,
		Priority:            priority,
		DuplicateCount:      len(matches),
		EstimatedResolution: estimate,
		Submitter:           actor,
	})
	if err != nil {
		s.observe(source, "failed", start)
		span.RecordError(err)
		return nil, err
	}

	s.scheduleIndex(complaint.ID, draft.EmbeddingText())
	s.observe(source, "accepted", start)

	return &dto.IntakeResult{
		ComplaintID:         complaint.ID,
		Status:              complaint.Status,
		PriorityScore:       complaint.PriorityScore,
		PriorityBand:        complaint.PriorityBand,
		Department:          complaint.Department,
		Category:            complaint.Category,
		Urgency:             complaint.Urgency,
		Confidence:          complaint.Confidence,
		Summary:             complaint.Summary,
		EstimatedResolution: complaint.EstimatedResolution,
		SimilarComplaints:   matches,
		SimilarityDegraded:  degraded,
	}, nil
}

// PreviewSimilar lists near-duplicates of a draft without persisting anything.
func (s *IntakeService) PreviewSimilar(ctx context.Context, input dto.SubmissionInput, actor models.Actor) (*dto.SimilarPreviewResult, error) {
	if actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	draft, err := s.normalizer.Normalize(input)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.FindSimilar(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &dto.SimilarPreviewResult{SimilarComplaints: matches}, nil
}

// HandleIndexJob embeds a freshly created complaint and records its vector reference.
func (s *IntakeService) HandleIndexJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(indexPayload)
	if !ok {
		return fmt.Errorf("index job %s: unexpected payload %T", job.ID, job.Payload)
	}
	ref, err := s.index.Index(ctx, payload.ComplaintID, payload.Text)
	if errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Info("complaint deleted before indexing", zap.String("complaint_id", payload.ComplaintID))
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.AttachVector(ctx, payload.ComplaintID, ref); err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		return err
	}
	return nil
}

func (s *IntakeService) triage(ctx context.Context, draft *models.SubmissionDraft) (*models.ClassificationResult, []models.SimilarityMatch, bool, error) {
	var (
		classification *models.ClassificationResult
		matches        []models.SimilarityMatch
		degraded       bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.classifier.Classify(gctx, draft)
		if err != nil {
			return err
		}
		classification = result
		return nil
	})
	g.Go(func() error {
		found, err := s.index.FindSimilar(gctx, draft)
		if errors.Is(err, appErrors.ErrIndexUnavailable) {
			s.logger.Warn("similarity lookup degraded", zap.Error(err))
			degraded = true
			return nil
		}
		if err != nil {
			return err
		}
		matches = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, false, err
	}
	if matches == nil {
		matches = []models.SimilarityMatch{}
	}
	return classification, matches, degraded, nil
}

func (s *IntakeService) scheduleIndex(complaintID, text string) {
	if s.queue == nil {
		return
	}
	err := s.queue.TryEnqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobIndex,
		Payload: indexPayload{ComplaintID: complaintID, Text: text},
	})
	if err != nil {
		s.logger.Warn("index job not scheduled; run reindex to recover",
			zap.String("complaint_id", complaintID),
			zap.Error(err),
		)
	}
}

func (s *IntakeService) observe(source, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveIntake(source, outcome, time.Since(start))
	}
}
