package service

import (
	"fmt"
	"strings"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/pkg/config"
)

type categoryPolicy struct {
	weight            int
	urgencyRank       int
	resolutionDays    int
	defaultDepartment string
	keywords          []string
	departmentRules   []config.DepartmentRule
}

// Taxonomy is the typed, read-only view over the category configuration.
type Taxonomy struct {
	generic         string
	departments     []string
	departmentSet   map[string]string
	policies        map[models.Category]categoryPolicy
	urgencyKeywords map[models.Urgency][]string
}

// NewTaxonomy validates cfg against the category enum.
func NewTaxonomy(cfg *config.Taxonomy) (*Taxonomy, error) {
	if cfg == nil {
		return nil, fmt.Errorf("taxonomy is required")
	}
	t := &Taxonomy{
		generic:         cfg.GenericDepartment,
		departments:     append([]string(nil), cfg.Departments...),
		departmentSet:   make(map[string]string, len(cfg.Departments)),
		policies:        make(map[models.Category]categoryPolicy, len(cfg.Categories)),
		urgencyKeywords: make(map[models.Urgency][]string, len(cfg.UrgencyKeywords)),
	}
	for _, d := range cfg.Departments {
		t.departmentSet[strings.ToLower(d)] = d
	}
	for _, rule := range cfg.Categories {
		cat, err := models.ParseCategory(rule.Name)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: %w", err)
		}
		t.policies[cat] = categoryPolicy{
			weight:            rule.Weight,
			urgencyRank:       rule.UrgencyRank,
			resolutionDays:    rule.ResolutionDays,
			defaultDepartment: rule.DefaultDepartment,
			keywords:          lowerAll(rule.Keywords),
			departmentRules:   rule.DepartmentRules,
		}
	}
	for _, cat := range models.Categories {
		if _, ok := t.policies[cat]; !ok {
			return nil, fmt.Errorf("taxonomy: category %q is not configured", cat)
		}
	}
	for raw, words := range cfg.UrgencyKeywords {
		u, err := models.ParseUrgency(raw)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: %w", err)
		}
		t.urgencyKeywords[u] = lowerAll(words)
	}
	return t, nil
}

// GenericDepartment is the catch-all routing target.
func (t *Taxonomy) GenericDepartment() string { return t.generic }

// Departments returns the department catalog.
func (t *Taxonomy) Departments() []string { return append([]string(nil), t.departments...) }

// CanonicalDepartment resolves name against the catalog case-insensitively.
func (t *Taxonomy) CanonicalDepartment(name string) (string, bool) {
	d, ok := t.departmentSet[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Weight is the category base weight used in priority scoring.
func (t *Taxonomy) Weight(c models.Category) int { return t.policies[c].weight }

// UrgencyRank orders categories by inherent urgency for tie-breaking.
func (t *Taxonomy) UrgencyRank(c models.Category) int { return t.policies[c].urgencyRank }

// ResolutionDays is the baseline resolution estimate for the category.
func (t *Taxonomy) ResolutionDays(c models.Category) int {
	if d := t.policies[c].resolutionDays; d > 0 {
		return d
	}
	return 7
}

// Keywords returns the fallback keyword list for c.
func (t *Taxonomy) Keywords(c models.Category) []string { return t.policies[c].keywords }

// UrgencyKeywords returns the keywords that signal urgency u.
func (t *Taxonomy) UrgencyKeywords(u models.Urgency) []string { return t.urgencyKeywords[u] }

// ResolveDepartment routes a category using keyword rules over text, then the
// category default, then the generic department.
func (t *Taxonomy) ResolveDepartment(c models.Category, text string) string {
	policy := t.policies[c]
	if text != "" {
		normalized := keywordText(text)
		for _, rule := range policy.departmentRules {
			if countKeywordHits(normalized, lowerAll(rule.Keywords)) > 0 {
				return rule.Department
			}
		}
	}
	if policy.defaultDepartment != "" {
		return policy.defaultDepartment
	}
	return t.generic
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// keywordText lowercases text and reduces it to space separated words with
// sentinel spaces at both ends so whole-word matching is a substring check.
func keywordText(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if isWordRune(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// countKeywordHits counts distinct keywords present as whole words (or simple plurals).
func countKeywordHits(normalized string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, " "+kw+" ") || strings.Contains(normalized, " "+kw+"s ") || strings.Contains(normalized, " "+kw+"es ") {
			hits++
		}
	}
	return hits
}
