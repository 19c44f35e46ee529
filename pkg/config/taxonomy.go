package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Taxonomy describes complaint categories, their routing and weighting.
type Taxonomy struct {
	GenericDepartment string              `yaml:"generic_department"`
	Departments       []string            `yaml:"departments"`
	UrgencyKeywords   map[string][]string `yaml:"urgency_keywords"`
	Categories        []CategoryRule      `yaml:"categories"`
}

// CategoryRule holds the per-category policy.
type CategoryRule struct {
	Name              string           `yaml:"name"`
	Weight            int              `yaml:"weight"`
	UrgencyRank       int              `yaml:"urgency_rank"`
	ResolutionDays    int              `yaml:"resolution_days"`
	DefaultDepartment string           `yaml:"default_department"`
	Keywords          []string         `yaml:"keywords"`
	DepartmentRules   []DepartmentRule `yaml:"department_rules"`
}

// DepartmentRule routes a category to a specific department on keyword match.
type DepartmentRule struct {
	Department string   `yaml:"department"`
	Keywords   []string `yaml:"keywords"`
}

// LoadTaxonomy reads the taxonomy from path, falling back to the embedded default when path is empty.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	raw := defaultTaxonomy
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
		}
		raw = data
	}
	return ParseTaxonomy(raw)
}

// ParseTaxonomy decodes and validates a YAML taxonomy document.
func ParseTaxonomy(raw []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if t.GenericDepartment == "" {
		return fmt.Errorf("taxonomy: generic_department is required")
	}
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: at least one category is required")
	}
	known := make(map[string]struct{}, len(t.Departments)+1)
	for _, d := range t.Departments {
		known[d] = struct{}{}
	}
	if _, ok := known[t.GenericDepartment]; !ok {
		t.Departments = append(t.Departments, t.GenericDepartment)
		known[t.GenericDepartment] = struct{}{}
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("taxonomy: duplicate category %q", c.Name)
		}
		seen[key] = struct{}{}
		if c.Weight < 0 || c.Weight > 100 {
			return fmt.Errorf("taxonomy: category %q weight out of range", c.Name)
		}
		if c.DefaultDepartment != "" {
			if _, ok := known[c.DefaultDepartment]; !ok {
				return fmt.Errorf("taxonomy: category %q default department %q not in catalog", c.Name, c.DefaultDepartment)
			}
		}
		for _, r := range c.DepartmentRules {
			if _, ok := known[r.Department]; !ok {
				return fmt.Errorf("taxonomy: category %q rule department %q not in catalog", c.Name, r.Department)
			}
		}
	}
	return nil
}
