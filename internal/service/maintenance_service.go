package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

const maintenanceBatchSize = 500

type maintenanceRepository interface {
	ListStalePending(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]models.StaleComplaint, error)
	ListIndexable(ctx context.Context, afterID string, limit int) ([]models.IndexableComplaint, error)
}

type priorityWriter interface {
	Reprioritize(ctx context.Context, id string, info models.PriorityInfo) (bool, error)
	AttachVector(ctx context.Context, id, vectorRef string) error
}

type indexRebuilder interface {
	Rebuild(ctx context.Context, items []models.IndexableComplaint) (int, error)
	VectorRef(complaintID string) string
}

// MaintenanceConfig tunes background upkeep.
type MaintenanceConfig struct {
	Interval time.Duration
	MinAge   time.Duration
}

// RescoreReport summarises one age re-scoring pass.
type RescoreReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// MaintenanceService re-scores ageing pending complaints and rebuilds the similarity index.
type MaintenanceService struct {
	repo   maintenanceRepository
	store  priorityWriter
	index  indexRebuilder
	scorer *PriorityScorer
	cfg    MaintenanceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(repo maintenanceRepository, store priorityWriter, index indexRebuilder, scorer *PriorityScorer, cfg MaintenanceConfig, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 48 * time.Hour
	}
	return &MaintenanceService{repo: repo, store: store, index: index, scorer: scorer, cfg: cfg, logger: logger, now: time.Now}
}

// Rescore recomputes the age component for every pending complaint older than
// MinAge and stores scores that changed. Priority only ever grows with age.
func (s *MaintenanceService) Rescore(ctx context.Context) (RescoreReport, error) {
	var report RescoreReport
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.MinAge)
	after := ""
	for {
		stale, err := s.repo.ListStalePending(ctx, cutoff, after, maintenanceBatchSize)
		if err != nil {
			return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale complaints")
		}
		for _, c := range stale {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Scanned++
			info := s.scorer.Score(models.ClassificationResult{Category: c.Category, Urgency: c.Urgency}, c.DuplicateCount, now.Sub(c.CreatedAt))
			if info.Score <= c.PriorityScore {
				continue
			}
			updated, err := s.store.Reprioritize(ctx, c.ID, info)
			if err != nil {
				return report, err
			}
			if updated {
				report.Updated++
			}
		}
		if len(stale) < maintenanceBatchSize {
			break
		}
		after = stale[len(stale)-1].ID
	}
	s.logger.Info("rescore pass finished", zap.Int("scanned", report.Scanned), zap.Int("updated", report.Updated))
	return report, nil
}

// Run rescores on every tick until ctx is cancelled.
func (s *MaintenanceService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Rescore(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("rescore pass failed", zap.Error(err))
			}
		}
	}
}

// Reindex re-embeds every complaint in id order and records the new vector
// references. It returns the number of complaints indexed.
func (s *MaintenanceService) Reindex(ctx context.Context) (int, error) {
	total := 0
	after := ""
	for {
		batch, err := s.repo.ListIndexable(ctx, after, maintenanceBatchSize)
		if err != nil {
			return total, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints for reindex")
		}
		if len(batch) == 0 {
			break
		}
		n, err := s.index.Rebuild(ctx, batch)
		total += n
		if err != nil {
			return total, fmt.Errorf("reindex batch after %q: %w", after, err)
		}
		for _, item := range batch {
			if err := s.store.AttachVector(ctx, item.ID, s.index.VectorRef(item.ID)); err != nil && !errors.Is(err, appErrors.ErrNotFound) {
				return total, err
			}
		}
		after = batch[len(batch)-1].ID
		s.logger.Info("reindex progress", zap.Int("indexed", total), zap.String("last_id", after))
		if len(batch) < maintenanceBatchSize {
			break
		}
	}
	return total, nil
}
