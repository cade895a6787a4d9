// Package catalog holds the fixed campaign and issue-type enumerations offered
// by the submission form and the browser filters.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is one selectable option. Label falls back to Value when empty.
type Entry struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// DisplayLabel returns the label shown in option lists.
func (e Entry) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Value
}

// Catalog is immutable once loaded.
type Catalog struct {
	Campaigns  []Entry `yaml:"campaigns"`
	IssueTypes []Entry `yaml:"issue_types"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault returns the embedded catalog and panics if it does not parse.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(content)
}

// Parse decodes and validates a YAML catalog.
func Parse(content []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Campaigns) == 0 {
		return nil, fmt.Errorf("catalog: no campaigns defined")
	}
	if len(c.IssueTypes) == 0 {
		return nil, fmt.Errorf("catalog: no issue types defined")
	}
	if err := checkUnique("campaign", c.Campaigns); err != nil {
		return nil, err
	}
	if err := checkUnique("issue type", c.IssueTypes); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasCampaign reports whether value is a known campaign.
func (c *Catalog) HasCampaign(value string) bool {
	return contains(c.Campaigns, value)
}

// HasIssueType reports whether value is a known issue type.
func (c *Catalog) HasIssueType(value string) bool {
	return contains(c.IssueTypes, value)
}

// IssueTypeLabel returns the display label of an issue type value.
func (c *Catalog) IssueTypeLabel(value string) string {
	for _, e := range c.IssueTypes {
		if e.Value == value {
			return e.DisplayLabel()
		}
	}
	return value
}

func contains(entries []Entry, value string) bool {
	for _, e := range entries {
		if e.Value == value {
			return true
		}
	}
	return false
}

func checkUnique(kind string, entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Value) == "" {
			return fmt.Errorf("catalog: empty %s value", kind)
		}
		// Slack caps option values at 150 characters.
		if len(e.Value) > 150 {
			return fmt.Errorf("catalog: %s %q too long", kind, e.Value)
		}
		if _, dup := seen[e.Value]; dup {
			return fmt.Errorf("catalog: duplicate %s %q", kind, e.Value)
		}
		seen[e.Value] = struct{}{}
	}
	return nil
}
