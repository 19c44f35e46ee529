package service

import (
	"context"
	"math"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

// RuleBackend classifies with the taxonomy keyword table. It never fails.
type RuleBackend struct {
	taxonomy *Taxonomy
}

// NewRuleBackend constructs the deterministic fallback backend.
func NewRuleBackend(taxonomy *Taxonomy) *RuleBackend {
	return &RuleBackend{taxonomy: taxonomy}
}

// Name implements ClassifierBackend.
func (b *RuleBackend) Name() string { return "rules" }

// Classify counts distinct keyword hits per category. Confidence grows with
// the number of hits for the winner and with its margin over the runner-up.
func (b *RuleBackend) Classify(_ context.Context, draft *models.SubmissionDraft) (*BackendVerdict, error) {
	text := keywordText(draft.EmbeddingText())

	hits := make(map[models.Category]int, len(models.Categories))
	top, second := 0, 0
	for _, cat := range models.Categories {
		n := countKeywordHits(text, b.taxonomy.Keywords(cat))
		if n == 0 {
			continue
		}
		hits[cat] = n
		switch {
		case n > top:
			second, top = top, n
		case n > second:
			second = n
		}
	}

	verdict := &BackendVerdict{
		Scores:  make(map[models.Category]float64, len(hits)),
		Urgency: b.detectUrgency(text, draft.DeclaredUrgency),
	}
	if top == 0 {
		if d := draft.DeclaredCategory; d != nil {
			verdict.Scores[*d] = 1
			verdict.Confidence = 0.5
		} else {
			verdict.Scores[models.CategoryOther] = 1
			verdict.Confidence = 0.2
		}
		return verdict, nil
	}

	for cat, n := range hits {
		verdict.Scores[cat] = float64(n) / float64(top)
	}
	conf := 0.35 + 0.35*math.Min(float64(top), 4)/4 + 0.25*float64(top-second)/float64(top)
	verdict.Confidence = math.Min(conf, 0.95)
	return verdict, nil
}

// detectUrgency returns the strongest urgency signalled by keywords. A low
// signal never overrides what the citizen declared.
func (b *RuleBackend) detectUrgency(text string, declared *models.Urgency) *models.Urgency {
	for _, u := range []models.Urgency{models.UrgencyUrgent, models.UrgencyHigh} {
		if countKeywordHits(text, b.taxonomy.UrgencyKeywords(u)) > 0 {
			out := u
			return &out
		}
	}
	if declared == nil && countKeywordHits(text, b.taxonomy.UrgencyKeywords(models.UrgencyLow)) > 0 {
		out := models.UrgencyLow
		return &out
	}
	return nil
}
