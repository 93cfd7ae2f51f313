package mockdata

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed describes the vocabulary and ranges used to generate store data
type Seed struct {
	Products  []string       `yaml:"products"`
	Vendors   []string       `yaml:"vendors"`
	Customers []string       `yaml:"customers"`
	Statuses  map[string]int `yaml:"statuses"`
	Price     struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"price"`
	Inventory struct {
		Max int `yaml:"max"`
	} `yaml:"inventory"`
	ReorderThreshold struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"reorder_threshold"`
	HistoryDays  int `yaml:"history_days"`
	MaxLineItems int `yaml:"max_line_items"`
	MaxQuantity  int `yaml:"max_quantity"`
}

// DefaultSeed returns the seed embedded in the binary
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes and validates a YAML seed document
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	switch {
	case len(s.Products) == 0:
		return fmt.Errorf("seed has no products")
	case len(s.Vendors) == 0:
		return fmt.Errorf("seed has no vendors")
	case len(s.Customers) == 0:
		return fmt.Errorf("seed has no customers")
	case len(s.Statuses) == 0:
		return fmt.Errorf("seed has no order statuses")
	case s.Price.Min <= 0 || s.Price.Max < s.Price.Min:
		return fmt.Errorf("invalid price range %.2f-%.2f", s.Price.Min, s.Price.Max)
	case s.ReorderThreshold.Max < s.ReorderThreshold.Min:
		return fmt.Errorf("invalid reorder threshold range")
	case s.HistoryDays <= 0 || s.MaxLineItems <= 0 || s.MaxQuantity <= 0:
		return fmt.Errorf("history_days, max_line_items and max_quantity must be positive")
	}
	for status, weight := range s.Statuses {
		if weight <= 0 {
			return fmt.Errorf("status %q has non-positive weight", status)
		}
	}
	return nil
}

// statusTable expands the weighted statuses into a lookup slice with a
// stable order so a seeded generator is reproducible.
func (s *Seed) statusTable() []string {
	names := make([]string, 0, len(s.Statuses))
	for name := range s.Statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	var table []string
	for _, name := range names {
		for i := 0; i < s.Statuses[name]; i++ {
			table = append(table, name)
		}
	}
	return table
}
