package gemini

import (
	"fmt"
	"strings"
)

// SystemInstruction frames the model as a municipal grievance triage officer.
const SystemInstruction = `You triage citizen grievances for a municipal portal.
Read the complaint and respond with a single JSON object and nothing else:
{
  "scores": {"<category>": <0..1>, ...},
  "urgency": "low" | "medium" | "high" | "urgent",
  "department": "<one department from the catalog>",
  "summary": "<one sentence synopsis, at most 160 characters>",
  "confidence": <0..1>
}
Score every category you consider plausible. Use only category and department
names from the lists provided. Lower the confidence when the complaint is
vague, off-topic or mixes unrelated issues.`

// Request is the classification input sent to the model.
type Request struct {
	Title            string
	Body             string
	Location         string
	DeclaredCategory string
	DeclaredUrgency  string
	Categories       []string
	Departments      []string
}

// BuildPrompt renders the user prompt for a classification request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(req.Categories, ", "))
	fmt.Fprintf(&b, "Departments: %s\n\n", strings.Join(req.Departments, ", "))
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.Location)
	}
	if req.DeclaredCategory != "" {
		fmt.Fprintf(&b, "Citizen-selected category: %s\n", req.DeclaredCategory)
	}
	if req.DeclaredUrgency != "" {
		fmt.Fprintf(&b, "Citizen-selected urgency: %s\n", req.DeclaredUrgency)
	}
	fmt.Fprintf(&b, "Complaint:\n%s\n", req.Body)
	return b.String()
}
