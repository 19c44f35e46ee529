package service

import (
	"context"
	"fmt"

	"github.com/bhoomash/publicwayservice-sub000/internal/gemini"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

type llmClassifier interface {
	Classify(ctx context.Context, req gemini.Request) (*gemini.Classification, error)
}

// LLMBackend classifies with a generative model.
type LLMBackend struct {
	client   llmClassifier
	taxonomy *Taxonomy
}

// NewLLMBackend wraps a Gemini client as a classifier backend.
func NewLLMBackend(client llmClassifier, taxonomy *Taxonomy) *LLMBackend {
	return &LLMBackend{client: client, taxonomy: taxonomy}
}

// Name implements ClassifierBackend.
func (b *LLMBackend) Name() string { return "gemini" }

// Classify implements ClassifierBackend. Category names the model invents are ignored.
func (b *LLMBackend) Classify(ctx context.Context, draft *models.SubmissionDraft) (*BackendVerdict, error) {
	categories := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		categories[i] = string(c)
	}
	declaredCat, declaredUrg := describeDeclared(draft)

	out, err := b.client.Classify(ctx, gemini.Request{
		Title:            draft.Title,
		Body:             draft.Body,
		Location:         draft.Location,
		DeclaredCategory: declaredCat,
		DeclaredUrgency:  declaredUrg,
		Categories:       categories,
		Departments:      b.taxonomy.Departments(),
	})
	if err != nil {
		return nil, err
	}

	verdict := &BackendVerdict{
		Scores:     make(map[models.Category]float64, len(out.Scores)),
		Department: out.Department,
		Summary:    out.Summary,
		Confidence: out.Confidence,
	}
	for raw, score := range out.Scores {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			continue
		}
		if score > verdict.Scores[cat] {
			verdict.Scores[cat] = score
		}
	}
	if len(verdict.Scores) == 0 {
		return nil, fmt.Errorf("gemini returned no known categories")
	}
	if u, err := models.ParseUrgency(out.Urgency); err == nil {
		verdict.Urgency = &u
	}
	return verdict, nil
}
