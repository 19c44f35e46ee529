package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

const (
	defaultSimilarityThreshold = 0.82
	defaultTopK                = 5
	reindexConcurrency         = 4
)

var vectorNamespace = uuid.MustParse("5b0e7a52-3c55-4c8e-9d0e-0f3c1e6a9b21")

type vectorStore interface {
	UpsertVector(ctx context.Context, rec models.VectorRecord) error
	ListVectors(ctx context.Context, model string) ([]models.VectorRecord, error)
}

type complaintRefLookup interface {
	Refs(ctx context.Context, ids []string) (map[string]models.ComplaintRef, error)
}

type similarityMetrics interface {
	ObserveSimilarity(outcome string, candidates int)
	SetIndexSize(n int)
}

// SimilarityConfig tunes duplicate detection.
type SimilarityConfig struct {
	Threshold float64
	TopK      int
}

type indexEntry struct {
	complaintID string
	vectorRef   string
	vector      []float32
}

type indexSnapshot struct {
	entries []indexEntry
	byID    map[string]int
}

// SimilarityIndex keeps complaint embeddings in an immutable snapshot that
// readers load atomically; writers copy, modify and swap under a mutex.
type SimilarityIndex struct {
	embedder Embedder
	store    vectorStore
	refs     complaintRefLookup
	cfg      SimilarityConfig
	metrics  similarityMetrics
	logger   *zap.Logger

	writeMu  sync.Mutex
	snapshot atomic.Pointer[indexSnapshot]
	// removed holds ids dropped by Remove; an embedding that finishes
	// afterwards must not bring them back. Guarded by writeMu.
	removed map[string]struct{}
}

// NewSimilarityIndex constructs an empty index.
func NewSimilarityIndex(embedder Embedder, store vectorStore, refs complaintRefLookup, cfg SimilarityConfig, metrics similarityMetrics, logger *zap.Logger) *SimilarityIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultSimilarityThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	idx := &SimilarityIndex{embedder: embedder, store: store, refs: refs, cfg: cfg, metrics: metrics, logger: logger, removed: map[string]struct{}{}}
	idx.snapshot.Store(&indexSnapshot{byID: map[string]int{}})
	return idx
}

// Load replaces the in-memory index with the vectors persisted for the current model.
func (s *SimilarityIndex) Load(ctx context.Context) error {
	records, err := s.store.ListVectors(ctx, s.embedder.Model())
	if err != nil {
		return fmt.Errorf("load vectors: %w", err)
	}
	next := &indexSnapshot{entries: make([]indexEntry, 0, len(records)), byID: make(map[string]int, len(records))}
	s.writeMu.Lock()
	for _, rec := range records {
		if _, gone := s.removed[rec.ComplaintID]; gone {
			continue
		}
		next.byID[rec.ComplaintID] = len(next.entries)
		next.entries = append(next.entries, indexEntry{complaintID: rec.ComplaintID, vectorRef: rec.VectorRef, vector: rec.Embedding})
	}
	s.snapshot.Store(next)
	s.writeMu.Unlock()
	s.reportSize(len(next.entries))
	s.logger.Info("similarity index loaded", zap.Int("vectors", len(next.entries)), zap.String("model", s.embedder.Model()))
	return nil
}

// Size returns the number of indexed complaints.
func (s *SimilarityIndex) Size() int {
	return len(s.snapshot.Load().entries)
}

// FindSimilar returns up to TopK indexed complaints whose similarity to draft
// meets the threshold, best first. Statuses are read at match time and
// complaints that no longer exist are dropped.
func (s *SimilarityIndex) FindSimilar(ctx context.Context, draft *models.SubmissionDraft) ([]models.SimilarityMatch, error) {
	vec, err := s.embedder.Embed(ctx, draft.EmbeddingText())
	if err != nil {
		s.observe("unavailable", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrIndexUnavailable.Code, appErrors.ErrIndexUnavailable.Status, appErrors.ErrIndexUnavailable.Message)
	}

	snap := s.snapshot.Load()
	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, s.cfg.TopK)
	for _, e := range snap.entries {
		score := cosine(vec, e.vector)
		if score >= s.cfg.Threshold {
			candidates = append(candidates, scored{id: e.complaintID, score: clamp01(score)})
		}
	}
	if len(candidates) == 0 {
		s.observe("none", 0)
		return []models.SimilarityMatch{}, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	refs, err := s.refs.Refs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load similar complaint statuses")
	}

	matches := make([]models.SimilarityMatch, 0, s.cfg.TopK)
	for _, c := range candidates {
		ref, ok := refs[c.id]
		if !ok {
			continue
		}
		matches = append(matches, models.SimilarityMatch{ComplaintID: c.id, Title: ref.Title, Score: c.score, Status: ref.Status})
		if len(matches) == s.cfg.TopK {
			break
		}
	}
	s.observe("matched", len(matches))
	return matches, nil
}

// Index embeds and stores the vector for complaintID. It is idempotent: an
// already indexed complaint returns its existing reference without re-embedding.
func (s *SimilarityIndex) Index(ctx context.Context, complaintID, text string) (string, error) {
	snap := s.snapshot.Load()
	if pos, ok := snap.byID[complaintID]; ok {
		return snap.entries[pos].vectorRef, nil
	}
	return s.index(ctx, complaintID, text)
}

func (s *SimilarityIndex) index(ctx context.Context, complaintID, text string) (string, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIndexUnavailable.Code, appErrors.ErrIndexUnavailable.Status, "failed to embed complaint")
	}
	ref := s.VectorRef(complaintID)
	if err := s.store.UpsertVector(ctx, models.VectorRecord{
		ComplaintID: complaintID,
		VectorRef:   ref,
		Model:       s.embedder.Model(),
		Embedding:   vec,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrNotFound
		}
		return "", fmt.Errorf("persist vector: %w", err)
	}
	if !s.put(indexEntry{complaintID: complaintID, vectorRef: ref, vector: vec}) {
		return "", appErrors.ErrNotFound
	}
	return ref, nil
}

// Remove drops complaintID from the in-memory index. The persisted vector is
// deleted together with the complaint.
func (s *SimilarityIndex) Remove(_ context.Context, complaintID string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.removed[complaintID] = struct{}{}
	cur := s.snapshot.Load()
	pos, ok := cur.byID[complaintID]
	if !ok {
		return
	}
	next := &indexSnapshot{entries: make([]indexEntry, 0, len(cur.entries)-1), byID: make(map[string]int, len(cur.entries)-1)}
	for i, e := range cur.entries {
		if i == pos {
			continue
		}
		next.byID[e.complaintID] = len(next.entries)
		next.entries = append(next.entries, e)
	}
	s.snapshot.Store(next)
	s.reportSize(len(next.entries))
}

// Rebuild re-embeds every complaint, typically after switching embedding model.
func (s *SimilarityIndex) Rebuild(ctx context.Context, items []models.IndexableComplaint) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)
	var indexed atomic.Int64
	for _, item := range items {
		item := item
		g.Go(func() error {
			_, err := s.index(gctx, item.ID, item.Title+"\n"+item.Description)
			if errors.Is(err, appErrors.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("index complaint %s: %w", item.ID, err)
			}
			indexed.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(indexed.Load()), err
}

// VectorRef is the stable handle of complaintID's vector under the current model.
func (s *SimilarityIndex) VectorRef(complaintID string) string {
	return uuid.NewSHA1(vectorNamespace, []byte(complaintID+"|"+s.embedder.Model())).String()
}

// put reports false when the complaint was removed while it was being embedded.
func (s *SimilarityIndex) put(entry indexEntry) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, gone := s.removed[entry.complaintID]; gone {
		return false
	}
	cur := s.snapshot.Load()
	next := &indexSnapshot{entries: make([]indexEntry, len(cur.entries), len(cur.entries)+1), byID: make(map[string]int, len(cur.entries)+1)}
	copy(next.entries, cur.entries)
	for k, v := range cur.byID {
		next.byID[k] = v
	}
	if pos, ok := next.byID[entry.complaintID]; ok {
		next.entries[pos] = entry
	} else {
		next.byID[entry.complaintID] = len(next.entries)
		next.entries = append(next.entries, entry)
	}
	s.snapshot.Store(next)
	s.reportSize(len(next.entries))
	return true
}

func (s *SimilarityIndex) observe(outcome string, n int) {
	if s.metrics != nil {
		s.metrics.ObserveSimilarity(outcome, n)
	}
}

func (s *SimilarityIndex) reportSize(n int) {
	if s.metrics != nil {
		s.metrics.SetIndexSize(n)
	}
}
