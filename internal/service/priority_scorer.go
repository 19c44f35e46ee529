package service

import (
	"fmt"
	"math"
	"time"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

// PriorityPolicy holds the scoring constants.
type PriorityPolicy struct {
	UrgencyWeights map[models.Urgency]int
	DuplicateCap   float64
	DuplicateDecay float64
	AgeStep        time.Duration
	AgeCap         int
	HighCutoff     int
	MediumCutoff   int
}

// DefaultPriorityPolicy returns the stock scoring constants.
func DefaultPriorityPolicy() PriorityPolicy {
	return PriorityPolicy{
		UrgencyWeights: map[models.Urgency]int{
			models.UrgencyUrgent: 40,
			models.UrgencyHigh:   30,
			models.UrgencyMedium: 15,
			models.UrgencyLow:    5,
		},
		DuplicateCap:   20,
		DuplicateDecay: 0.6,
		AgeStep:        48 * time.Hour,
		AgeCap:         10,
		HighCutoff:     80,
		MediumCutoff:   50,
	}
}

// PriorityScorer computes priority scores. It is a pure function of its inputs.
type PriorityScorer struct {
	policy   PriorityPolicy
	taxonomy *Taxonomy
}

// NewPriorityScorer builds a scorer, filling unset policy fields with defaults.
func NewPriorityScorer(policy PriorityPolicy, taxonomy *Taxonomy) *PriorityScorer {
	def := DefaultPriorityPolicy()
	if len(policy.UrgencyWeights) == 0 {
		policy.UrgencyWeights = def.UrgencyWeights
	}
	if policy.DuplicateCap <= 0 {
		policy.DuplicateCap = def.DuplicateCap
	}
	if policy.DuplicateDecay <= 0 || policy.DuplicateDecay >= 1 {
		policy.DuplicateDecay = def.DuplicateDecay
	}
	if policy.AgeStep <= 0 {
		policy.AgeStep = def.AgeStep
	}
	if policy.AgeCap < 0 {
		policy.AgeCap = 0
	}
	if policy.HighCutoff <= 0 {
		policy.HighCutoff = def.HighCutoff
	}
	if policy.MediumCutoff <= 0 || policy.MediumCutoff > policy.HighCutoff {
		policy.MediumCutoff = def.MediumCutoff
	}
	return &PriorityScorer{policy: policy, taxonomy: taxonomy}
}

// Score combines urgency weight, category weight, a saturating duplicate
// term and an age term, clamped to 0..100. age only matters for complaints
// still pending; intake passes zero.
func (s *PriorityScorer) Score(c models.ClassificationResult, similarCount int, age time.Duration) models.PriorityInfo {
	info := models.PriorityInfo{
		Urgency:    s.policy.UrgencyWeights[c.Urgency],
		Category:   s.taxonomy.Weight(c.Category),
		Duplicates: s.duplicateTerm(similarCount),
		Age:        s.ageTerm(age),
	}
	score := info.Urgency + info.Category + info.Duplicates + info.Age
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	info.Score = score
	info.Band = s.Band(score)
	return info
}

// Band maps a score to its priority band.
func (s *PriorityScorer) Band(score int) models.PriorityBand {
	switch {
	case score >= s.policy.HighCutoff:
		return models.BandHigh
	case score >= s.policy.MediumCutoff:
		return models.BandMedium
	default:
		return models.BandLow
	}
}

func (s *PriorityScorer) duplicateTerm(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Round(s.policy.DuplicateCap * (1 - math.Pow(s.policy.DuplicateDecay, float64(n)))))
}

func (s *PriorityScorer) ageTerm(age time.Duration) int {
	if age <= 0 || s.policy.AgeCap == 0 {
		return 0
	}
	steps := int(age / s.policy.AgeStep)
	if steps > s.policy.AgeCap {
		return s.policy.AgeCap
	}
	return steps
}

// EstimateResolution gives a human readable resolution window for a complaint.
func (s *PriorityScorer) EstimateResolution(category models.Category, urgency models.Urgency, score int) string {
	days := s.taxonomy.ResolutionDays(category)
	switch urgency {
	case models.UrgencyUrgent, models.UrgencyHigh:
		days = maxInt(1, days/2)
	case models.UrgencyLow:
		days = int(float64(days) * 1.5)
	}
	switch {
	case score >= 90:
		days = maxInt(1, days/2)
	case score <= 30:
		days = int(float64(days) * 1.3)
	}

	switch {
	case days <= 1:
		return "24-48 hours"
	case days <= 3:
		return fmt.Sprintf("%d business days", days)
	case days <= 7:
		return "1 week"
	case days <= 14:
		return "2 weeks"
	default:
		return fmt.Sprintf("%d weeks", days/7)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
