package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassificationStripsFences(t *testing.T) {
	raw := "```json\n{\"scores\":{\"Utilities\":0.9,\"Infrastructure\":0.3},\"urgency\":\"high\",\"department\":\"Water Department\",\"summary\":\"Pipe burst\",\"confidence\":0.88}\n```"

	got, err := ParseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Scores["Utilities"])
	assert.Equal(t, "Water Department", got.Department)
	assert.Equal(t, 0.88, got.Confidence)
}

func TestParseClassificationRejectsBadPayloads(t *testing.T) {
	_, err := ParseClassification("not json")
	assert.Error(t, err)

	_, err = ParseClassification(`{"scores":{},"confidence":0.5}`)
	assert.Error(t, err)

	_, err = ParseClassification(`{"scores":{"Other":1},"confidence":1.5}`)
	assert.Error(t, err)
}

func TestBuildPromptIncludesDeclaredHints(t *testing.T) {
	prompt := BuildPrompt(Request{
		Title:            "Leak",
		Body:             "Water leaking from main line",
		DeclaredCategory: "Utilities",
		Categories:       []string{"Utilities", "Other"},
		Departments:      []string{"Water Department"},
	})
	assert.Contains(t, prompt, "Citizen-selected category: Utilities")
	assert.Contains(t, prompt, "Departments: Water Department")
	assert.NotContains(t, prompt, "Citizen-selected urgency")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
