package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classification is the JSON verdict returned by the model.
type Classification struct {
	Scores     map[string]float64 `json:"scores"`
	Urgency    string             `json:"urgency"`
	Department string             `json:"department"`
	Summary    string             `json:"summary"`
	Confidence float64            `json:"confidence"`
}

// ParseClassification decodes a model reply, tolerating markdown code fences.
func ParseClassification(raw string) (*Classification, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var out Classification
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("gemini response has no category scores")
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("gemini confidence %v out of range", out.Confidence)
	}
	return &out, nil
}
