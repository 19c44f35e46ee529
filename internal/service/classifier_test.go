package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/gemini"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

type backendStub struct {
	name    string
	verdict *BackendVerdict
	err     error
	calls   int
}

func (b *backendStub) Name() string { return b.name }

func (b *backendStub) Classify(ctx context.Context, draft *models.SubmissionDraft) (*BackendVerdict, error) {
	b.calls++
	return b.verdict, b.err
}

type classifierMetricsStub struct {
	outcomes map[string]int
}

func (m *classifierMetricsStub) ObserveClassification(backend, outcome string) {
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[backend+":"+outcome]++
}

func urgencyPtr(u models.Urgency) *models.Urgency    { return &u }
func categoryPtr(c models.Category) *models.Category { return &c }

func TestClassifyBrokenStreetlightWithRules(t *testing.T) {
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil)

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title: "Broken streetlight",
		Body:  "The streetlight at Main & 5th has been out for 10 days",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryInfrastructure, res.Category)
	assert.Equal(t, "Electricity Board", res.Department)
	assert.Equal(t, models.UrgencyHigh, res.Urgency)
	assert.Equal(t, "rules", res.Backend)
	assert.GreaterOrEqual(t, res.Confidence, 0.35)
	assert.NotEmpty(t, res.Summary)
}

func TestClassifyFallsBackWhenPrimaryFails(t *testing.T) {
	metrics := &classifierMetricsStub{}
	primary := &backendStub{name: "gemini", err: errors.New("quota exceeded")}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithPrimaryBackend(primary), WithClassifierMetrics(metrics))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title: "Water supply outage",
		Body:  "No water supply in our building since Monday, the meter shows nothing",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, "rules", res.Backend)
	assert.Equal(t, models.CategoryUtilities, res.Category)
	assert.Equal(t, 1, metrics.outcomes["gemini:unavailable"])
	assert.Equal(t, 1, metrics.outcomes["rules:accepted"])
}

func TestClassifyUsesPrimaryVerdict(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores:     map[models.Category]float64{models.CategoryUtilities: 0.9, models.CategoryInfrastructure: 0.2},
		Urgency:    urgencyPtr(models.UrgencyUrgent),
		Department: "water department",
		Summary:    "Main water line burst",
		Confidence: 0.91,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithPrimaryBackend(primary))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title:           "Pipe burst",
		Body:            "Water everywhere on the street near the school",
		DeclaredUrgency: urgencyPtr(models.UrgencyLow),
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryUtilities, res.Category)
	assert.Equal(t, models.UrgencyUrgent, res.Urgency)
	assert.Equal(t, "Water Department", res.Department)
	assert.Equal(t, "gemini", res.Backend)
	assert.Equal(t, "Main water line burst", res.Summary)
}

func TestClassifyUrgencyPrecedence(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores:     map[models.Category]float64{models.CategoryEducation: 0.8},
		Confidence: 0.8,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithPrimaryBackend(primary))
	draft := &models.SubmissionDraft{Title: "School", Body: "The school roof needs painting soon"}

	res, err := c.Classify(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyMedium, res.Urgency)

	draft.DeclaredUrgency = urgencyPtr(models.UrgencyHigh)
	res, err = c.Classify(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyHigh, res.Urgency)
}

func TestClassifyIgnoresUnknownDepartment(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores:     map[models.Category]float64{models.CategoryEnvironmental: 0.9},
		Department: "Ministry of Garbage",
		Confidence: 0.8,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithPrimaryBackend(primary))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{Title: "Trash", Body: "Garbage dumping behind the market every night"})
	require.NoError(t, err)
	assert.Equal(t, "Waste Management", res.Department)
}

func TestClassifyTieBreakPrefersDeclaredCategory(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores: map[models.Category]float64{
			models.CategoryPublicSafety:   0.70,
			models.CategoryTransportation: 0.68,
		},
		Confidence: 0.7,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{TieEpsilon: 0.05}, nil, WithPrimaryBackend(primary))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title:            "Signal",
		Body:             "Traffic signal broken at the junction, cars nearly crashed",
		DeclaredCategory: categoryPtr(models.CategoryTransportation),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTransportation, res.Category)
}

func TestClassifyTieBreakPrefersHigherUrgencyCategory(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores: map[models.Category]float64{
			models.CategoryTransportation: 0.70,
			models.CategoryPublicSafety:   0.68,
		},
		Confidence: 0.7,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{TieEpsilon: 0.05}, nil, WithPrimaryBackend(primary))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title:            "Signal",
		Body:             "Traffic signal broken at the junction",
		DeclaredCategory: categoryPtr(models.CategoryOther),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPublicSafety, res.Category)
}

func TestClassifyTieBreakPrefersSpecificDepartment(t *testing.T) {
	primary := &backendStub{name: "gemini", verdict: &BackendVerdict{
		Scores: map[models.Category]float64{
			models.CategoryHealthcare: 0.60,
			models.CategoryUtilities:  0.61,
		},
		Confidence: 0.7,
	}}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{TieEpsilon: 0.05}, nil, WithPrimaryBackend(primary))

	// Utilities and Healthcare share an urgency rank; without a routing keyword
	// Utilities falls to the generic department, so Healthcare wins.
	res, err := c.Classify(context.Background(), &models.SubmissionDraft{Title: "Problem", Body: "Something is wrong near the clinic gate"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryHealthcare, res.Category)
	assert.Equal(t, "Health Department", res.Department)
}

func TestClassifyRefusesLowConfidence(t *testing.T) {
	metrics := &classifierMetricsStub{}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithClassifierMetrics(metrics))

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title: "Hello",
		Body:  "I would like to say something about things in general",
	})
	require.Nil(t, res)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrLowConfidence.Code, appErr.Code)
	assert.Equal(t, 0.2, appErr.Details["confidence"])
	partial, ok := appErr.Details["partial"].(*models.ClassificationResult)
	require.True(t, ok)
	assert.Equal(t, models.CategoryOther, partial.Category)
	assert.Equal(t, 1, metrics.outcomes["rules:refused"])
}

func TestClassifyDeclaredCategoryWithoutKeywords(t *testing.T) {
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil)

	res, err := c.Classify(context.Background(), &models.SubmissionDraft{
		Title:            "Irregular process",
		Body:             "The official asked me for extra cash before processing",
		DeclaredCategory: categoryPtr(models.CategoryCorruption),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryCorruption, res.Category)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, "Anti-Corruption Bureau", res.Department)
}

func TestClassifyHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &backendStub{name: "gemini", err: context.Canceled}
	c := NewClassifier(defaultTaxonomy(t), ClassifierConfig{}, nil, WithPrimaryBackend(primary))

	_, err := c.Classify(ctx, &models.SubmissionDraft{Title: "x", Body: "water outage for the entire block"})
	assert.ErrorIs(t, err, context.Canceled)
}

type llmClientStub struct {
	out *gemini.Classification
	err error
	req gemini.Request
}

func (s *llmClientStub) Classify(ctx context.Context, req gemini.Request) (*gemini.Classification, error) {
	s.req = req
	return s.out, s.err
}

func TestLLMBackendMapsVerdict(t *testing.T) {
	client := &llmClientStub{out: &gemini.Classification{
		Scores:     map[string]float64{"public safety": 0.8, "Aliens": 0.9, "Environment": 0.3},
		Urgency:    "critical",
		Department: "Police Department",
		Confidence: 0.77,
	}}
	b := NewLLMBackend(client, defaultTaxonomy(t))

	v, err := b.Classify(context.Background(), &models.SubmissionDraft{Title: "t", Body: "b", DeclaredCategory: categoryPtr(models.CategoryOther)})
	require.NoError(t, err)

	assert.Equal(t, 0.8, v.Scores[models.CategoryPublicSafety])
	assert.Equal(t, 0.3, v.Scores[models.CategoryEnvironmental])
	assert.Len(t, v.Scores, 2)
	require.NotNil(t, v.Urgency)
	assert.Equal(t, models.UrgencyUrgent, *v.Urgency)
	assert.Equal(t, "Other", client.req.DeclaredCategory)
	assert.Contains(t, client.req.Departments, "Municipal Corporation")
}

func TestLLMBackendRejectsUnknownCategories(t *testing.T) {
	client := &llmClientStub{out: &gemini.Classification{Scores: map[string]float64{"Aliens": 1}, Confidence: 0.9}}
	_, err := NewLLMBackend(client, defaultTaxonomy(t)).Classify(context.Background(), &models.SubmissionDraft{})
	assert.Error(t, err)
}
