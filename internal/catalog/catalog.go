// Package catalog holds the keyword tables that drive topic extraction,
// Bloom's level estimation, content acquisition and question planning.
//
// A Catalog is plain configuration data. Components receive one through
// their constructor; nothing reads the tables from package state.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Catalog is the full set of keyword tables.
type Catalog struct {
	TerminalTopic     string         `yaml:"terminal_topic"`
	GenericTerms      []string       `yaml:"generic_terms"`
	FillerPhrases     []string       `yaml:"filler_phrases"`
	Domains           []Domain       `yaml:"domains"`
	RoleCategories    []RoleCategory `yaml:"role_categories"`
	DefaultCategory   string         `yaml:"default_category"`
	BaseTotal         int            `yaml:"base_total"`
	BloomTiers        []BloomTier    `yaml:"bloom_tiers"`
	DefaultBloomLevel int            `yaml:"default_bloom_level"`
	Acquire           AcquireTables  `yaml:"acquire"`
	Fallbacks         Fallbacks      `yaml:"fallbacks"`
}

// Domain is a subject area recognized by its keyword phrases.
type Domain struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// RoleCategory maps role labels to a question type distribution.
type RoleCategory struct {
	Name     string        `yaml:"name"`
	Keywords []string      `yaml:"keywords"`
	Pattern  []PatternItem `yaml:"pattern"`
}

// PatternItem is one question type and its count at BaseTotal questions.
type PatternItem struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// BloomTier lists the verbs that indicate a Bloom's taxonomy level.
type BloomTier struct {
	Level    int      `yaml:"level"`
	Keywords []string `yaml:"keywords"`
}

// AcquireTables configures which pages are fetched and how they are read.
type AcquireTables struct {
	AllowedDomains      []string `yaml:"allowed_domains"`
	BlockedExtensions   []string `yaml:"blocked_extensions"`
	ContentSelectors    []string `yaml:"content_selectors"`
	ApplicationHeadings []string `yaml:"application_headings"`
}

// Fallbacks is the fixed content used when generation fails. "{topic}" in
// a template is replaced with the topic name.
type Fallbacks struct {
	Explanation  string   `yaml:"explanation"`
	Applications []string `yaml:"applications"`
	TestedAreas  []string `yaml:"tested_areas"`
	ExampleStems []string `yaml:"example_stems"`
}

// Default returns the embedded catalog. Each call returns a fresh copy.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path, or returns the embedded catalog when path is
// empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the structural invariants the consumers rely on.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.TerminalTopic) == "" {
		return fmt.Errorf("terminal_topic is required")
	}
	if c.BaseTotal <= 0 {
		return fmt.Errorf("base_total must be positive, got %d", c.BaseTotal)
	}
	if c.DefaultBloomLevel < 1 || c.DefaultBloomLevel > 6 {
		return fmt.Errorf("default_bloom_level must be 1-6, got %d", c.DefaultBloomLevel)
	}
	for _, t := range c.BloomTiers {
		if t.Level < 1 || t.Level > 6 {
			return fmt.Errorf("bloom tier level must be 1-6, got %d", t.Level)
		}
	}

	if len(c.RoleCategories) == 0 {
		return fmt.Errorf("at least one role category is required")
	}
	for _, rc := range c.RoleCategories {
		sum := 0
		for _, p := range rc.Pattern {
			if p.Count <= 0 {
				return fmt.Errorf("category %q: count for %q must be positive", rc.Name, p.Type)
			}
			sum += p.Count
		}
		if sum != c.BaseTotal {
			return fmt.Errorf("category %q: pattern sums to %d, want %d", rc.Name, sum, c.BaseTotal)
		}
	}
	if _, ok := c.Category(c.DefaultCategory); !ok {
		return fmt.Errorf("default_category %q is not a known category", c.DefaultCategory)
	}

	if len(c.Fallbacks.Applications) == 0 || c.Fallbacks.Explanation == "" {
		return fmt.Errorf("fallbacks need an explanation and at least one application")
	}
	return nil
}

// Category looks up a role category by name.
func (c *Catalog) Category(name string) (RoleCategory, bool) {
	for _, rc := range c.RoleCategories {
		if rc.Name == name {
			return rc, true
		}
	}
	return RoleCategory{}, false
}

// IsGeneric reports whether s is a bare generic term such as "basics".
func (c *Catalog) IsGeneric(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range c.GenericTerms {
		if s == g {
			return true
		}
	}
	return false
}

// Fill replaces "{topic}" in a fallback template.
func Fill(template, topic string) string {
	return strings.ReplaceAll(template, "{topic}", topic)
}
