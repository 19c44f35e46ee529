package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
	"github.com/bhoomash/publicwayservice-sub000/pkg/logger"
)

const (
	defaultRejectionThreshold = 0.35
	defaultTieEpsilon         = 0.05
	summaryLength             = 160
)

// ClassifierBackend produces a raw verdict for a draft.
type ClassifierBackend interface {
	Name() string
	Classify(ctx context.Context, draft *models.SubmissionDraft) (*BackendVerdict, error)
}

// BackendVerdict is the unresolved output of a classifier backend.
type BackendVerdict struct {
	Scores     map[models.Category]float64
	Urgency    *models.Urgency
	Department string
	Summary    string
	Confidence float64
}

type classifierMetrics interface {
	ObserveClassification(backend, outcome string)
}

// ClassifierConfig tunes acceptance and tie-breaking.
type ClassifierConfig struct {
	RejectionThreshold float64
	TieEpsilon         float64
	Timeout            time.Duration
}

// Classifier resolves backend verdicts into a final classification.
type Classifier struct {
	primary  ClassifierBackend
	fallback ClassifierBackend
	taxonomy *Taxonomy
	cfg      ClassifierConfig
	metrics  classifierMetrics
	logger   *zap.Logger
}

// ClassifierOption configures the classifier.
type ClassifierOption func(*Classifier)

// WithPrimaryBackend installs the preferred backend; the rule backend remains the fallback.
func WithPrimaryBackend(b ClassifierBackend) ClassifierOption {
	return func(c *Classifier) {
		if b != nil {
			c.primary = b
		}
	}
}

// WithClassifierMetrics records per-backend outcomes.
func WithClassifierMetrics(m classifierMetrics) ClassifierOption {
	return func(c *Classifier) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClassifier constructs a classifier backed by the deterministic rule table.
func NewClassifier(taxonomy *Taxonomy, cfg ClassifierConfig, logger *zap.Logger, opts ...ClassifierOption) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RejectionThreshold <= 0 {
		cfg.RejectionThreshold = defaultRejectionThreshold
	}
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = defaultTieEpsilon
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Classifier{
		fallback: NewRuleBackend(taxonomy),
		taxonomy: taxonomy,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Classify infers category, urgency and department for draft. Submissions
// below the rejection threshold yield LOW_CONFIDENCE_CLASSIFICATION whose
// details carry the partial result.
func (c *Classifier) Classify(ctx context.Context, draft *models.SubmissionDraft) (*models.ClassificationResult, error) {
	if draft == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "submission is required")
	}
	verdict, backend, err := c.runBackends(ctx, draft)
	if err != nil {
		return nil, err
	}

	result := c.resolve(draft, verdict, backend)
	if result.Confidence < c.cfg.RejectionThreshold {
		c.observe(backend, "refused")
		return nil, appErrors.WithDetails(appErrors.ErrLowConfidence, "", map[string]interface{}{
			"reason":     "classification confidence below threshold",
			"confidence": result.Confidence,
			"threshold":  c.cfg.RejectionThreshold,
			"partial":    result,
		})
	}
	c.observe(backend, "accepted")
	return result, nil
}

func (c *Classifier) runBackends(ctx context.Context, draft *models.SubmissionDraft) (*BackendVerdict, string, error) {
	if c.primary != nil {
		pctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		verdict, err := c.primary.Classify(pctx, draft)
		cancel()
		if err == nil && verdict != nil {
			return verdict, c.primary.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if err == nil {
			err = errors.New("empty verdict")
		}
		c.observe(c.primary.Name(), "unavailable")
		logger.WithContext(ctx, c.logger).Warn("primary classifier unavailable, using rules",
			zap.String("backend", c.primary.Name()), zap.Error(err))
	}

	verdict, err := c.fallback.Classify(ctx, draft)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to classify submission")
	}
	return verdict, c.fallback.Name(), nil
}

func (c *Classifier) resolve(draft *models.SubmissionDraft, verdict *BackendVerdict, backend string) *models.ClassificationResult {
	text := draft.EmbeddingText()
	scores := sanitizeScores(verdict.Scores)
	top := topCategory(scores)
	category := c.pickCategory(scores, draft, text)

	urgency := models.UrgencyMedium
	switch {
	case verdict.Urgency != nil && verdict.Urgency.Rank() > 0:
		urgency = *verdict.Urgency
	case draft.DeclaredUrgency != nil:
		urgency = *draft.DeclaredUrgency
	}

	department := ""
	if dept, ok := c.taxonomy.CanonicalDepartment(verdict.Department); ok && category == top {
		department = dept
	}
	if department == "" {
		department = c.taxonomy.ResolveDepartment(category, text)
	}

	summary := strings.TrimSpace(verdict.Summary)
	if summary == "" {
		summary = deriveSummary(draft.Body)
	}

	return &models.ClassificationResult{
		Category:   category,
		Urgency:    urgency,
		Department: department,
		Confidence: clamp01(verdict.Confidence),
		Summary:    truncateRunes(summary, summaryLength),
		Backend:    backend,
		Scores:     scores,
	}
}

// pickCategory applies the tie-break among categories within epsilon of the
// best score: declared category (unless Other), then higher category urgency
// rank, then a specific department over the generic one.
func (c *Classifier) pickCategory(scores map[models.Category]float64, draft *models.SubmissionDraft, text string) models.Category {
	best := -1.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	candidates := make([]models.Category, 0, len(scores))
	for _, cat := range models.Categories {
		if s, ok := scores[cat]; ok && s >= best-c.cfg.TieEpsilon {
			candidates = append(candidates, cat)
		}
	}
	if len(candidates) == 0 {
		return models.CategoryOther
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	if d := draft.DeclaredCategory; d != nil && *d != models.CategoryOther {
		for _, cat := range candidates {
			if cat == *d {
				return cat
			}
		}
	}

	generic := c.taxonomy.GenericDepartment()
	specific := func(cat models.Category) bool {
		return c.taxonomy.ResolveDepartment(cat, text) != generic
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := c.taxonomy.UrgencyRank(a), c.taxonomy.UrgencyRank(b); ra != rb {
			return ra > rb
		}
		if sa, sb := specific(a), specific(b); sa != sb {
			return sa
		}
		return scores[a] > scores[b]
	})
	return candidates[0]
}

func (c *Classifier) observe(backend, outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveClassification(backend, outcome)
	}
}

func sanitizeScores(in map[models.Category]float64) map[models.Category]float64 {
	out := make(map[models.Category]float64, len(in))
	for cat, s := range in {
		if s <= 0 {
			continue
		}
		out[cat] = clamp01(s)
	}
	if len(out) == 0 {
		out[models.CategoryOther] = 0
	}
	return out
}

func topCategory(scores map[models.Category]float64) models.Category {
	top, best := models.CategoryOther, -1.0
	for _, cat := range models.Categories {
		if s, ok := scores[cat]; ok && s > best {
			top, best = cat, s
		}
	}
	return top
}

func deriveSummary(body string) string {
	first := body
	if i := strings.IndexAny(first, ".!?\n"); i > 0 {
		first = first[:i+1]
	}
	first = strings.TrimSpace(strings.TrimSuffix(first, "\n"))
	if utf8.RuneCountInString(first) > summaryLength {
		first = truncateRunes(first, summaryLength-3) + "..."
	}
	return first
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func describeDeclared(d *models.SubmissionDraft) (string, string) {
	var cat, urg string
	if d.DeclaredCategory != nil {
		cat = string(*d.DeclaredCategory)
	}
	if d.DeclaredUrgency != nil {
		urg = string(*d.DeclaredUrgency)
	}
	return cat, urg
}
