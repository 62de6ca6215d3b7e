// Package catalog loads the static insurance plan catalog and computes bundle discounts.
package catalog

import (
	_ "embed" // Embedded catalog file
	"fmt"     // String formatting
	"sort"    // Sorting

	"gopkg.in/yaml.v3" // YAML decoding
)

//go:embed plans.yaml
var defaultCatalog []byte

// Plan is one insurance product
type Plan struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Category       string   `yaml:"category" json:"category"`
	MonthlyPremium float64  `yaml:"monthly_premium" json:"monthly_premium"`
	CoverageRatio  float64  `yaml:"coverage_ratio" json:"coverage_ratio"`
	Covers         []string `yaml:"covers" json:"covers"`
	Highlights     []string `yaml:"highlights" json:"highlights"`
}

// Scenario holds the fallback figures for one simulated life event
type Scenario struct {
	BaseCost float64 `yaml:"base_cost" json:"base_cost"`
	Category string  `yaml:"category" json:"category"`
}

// Catalog is the loaded plan catalog
type Catalog struct {
	Plans           []Plan              `yaml:"plans"`
	BundleDiscounts map[int]float64     `yaml:"bundle_discounts"`
	Scenarios       map[string]Scenario `yaml:"scenarios"`

	byID map[string]Plan
}

// Default parses the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault parses the embedded catalog and panics on error
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse loads a catalog from YAML and validates it
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	c.byID = make(map[string]Plan, len(c.Plans))
	for _, p := range c.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("plan without id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %s", p.ID)
		}
		if p.CoverageRatio < 0 || p.CoverageRatio > 1 {
			return nil, fmt.Errorf("plan %s: coverage_ratio must be within [0,1]", p.ID)
		}
		c.byID[p.ID] = p
	}
	if len(c.BundleDiscounts) == 0 {
		return nil, fmt.Errorf("bundle_discounts table is empty")
	}
	return &c, nil
}

// Plan looks up a plan by id
func (c *Catalog) Plan(id string) (Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// PlansByCategory returns the plans of a category, or all plans when category is empty
func (c *Catalog) PlansByCategory(category string) []Plan {
	out := make([]Plan, 0, len(c.Plans))
	for _, p := range c.Plans {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// PlansCovering returns the plans covering a scenario, best coverage first
func (c *Catalog) PlansCovering(scenario string) []Plan {
	var out []Plan
	for _, p := range c.Plans {
		for _, s := range p.Covers {
			if s == scenario {
				out = append(out, p)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CoverageRatio != out[j].CoverageRatio {
			return out[i].CoverageRatio > out[j].CoverageRatio
		}
		return out[i].MonthlyPremium < out[j].MonthlyPremium
	})
	return out
}

// Scenario looks up a scenario by name
func (c *Catalog) Scenario(name string) (Scenario, bool) {
	s, ok := c.Scenarios[name]
	return s, ok
}

// ScenarioNames returns the known scenarios sorted by name
func (c *Catalog) ScenarioNames() []string {
	names := make([]string, 0, len(c.Scenarios))
	for n := range c.Scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
