// Package config provides configuration loading and management for schemadoc.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Selection modes
const (
	SelectDefault    = "default"
	SelectAll        = "all"
	SelectExtensions = "extensions"
	SelectTypes      = "types"
)

// MinTruncate is the smallest accepted description preview budget.
const MinTruncate = 10

// Config represents the complete schemadoc configuration
type Config struct {
	Base             string          `yaml:"base"`
	Extensions       string          `yaml:"extensions"`
	Output           string          `yaml:"output"`
	BaseContext      string          `yaml:"base_context"`
	ExtensionContext string          `yaml:"extension_context"`
	ConflictStrategy string          `yaml:"conflict_strategy"`
	Formats          []string        `yaml:"formats"`
	Selection        SelectionConfig `yaml:"selection"`
	Concurrency      int             `yaml:"concurrency"`
	Truncate         int             `yaml:"truncate"`
	InheritedByLimit int             `yaml:"inherited_by_limit"`
	Index            bool            `yaml:"index"`
	Search           SearchConfig    `yaml:"search"`
	RDF              bool            `yaml:"rdf"`
	MetricsFile      string          `yaml:"metrics_file"`
	StampGeneratedAt bool            `yaml:"stamp_generated_at"`
}

// SelectionConfig chooses which types get documents
type SelectionConfig struct {
	Mode  string   `yaml:"mode"`
	Types []string `yaml:"types"`
}

// SearchConfig configures optional search exports
type SearchConfig struct {
	SQLite bool `yaml:"sqlite"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output:           "docs",
		BaseContext:      vocab.DefaultBaseContext,
		ExtensionContext: vocab.DefaultExtensionContext,
		ConflictStrategy: string(vocab.ExtensionWins),
		Formats:          render.ProfileNames(),
		Selection:        SelectionConfig{Mode: SelectDefault},
		Concurrency:      8,
		Truncate:         render.DefaultTruncate,
		InheritedByLimit: render.DefaultInheritedByLimit,
		Index:            true,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !vocab.ConflictStrategy(c.ConflictStrategy).Valid() {
		return fmt.Errorf("unknown conflict_strategy %q", c.ConflictStrategy)
	}
	if len(c.Formats) == 0 {
		return fmt.Errorf("formats must name at least one output format")
	}
	if _, err := render.ProfilesFor(c.Formats); err != nil {
		return err
	}
	switch c.Selection.Mode {
	case SelectDefault, SelectAll, SelectExtensions:
	case SelectTypes:
		if len(c.Selection.Types) == 0 {
			return fmt.Errorf("selection.mode %q requires selection.types", SelectTypes)
		}
		for _, p := range c.Selection.Types {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid selection pattern %q", p)
			}
		}
	default:
		return fmt.Errorf("unknown selection.mode %q", c.Selection.Mode)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Truncate < MinTruncate {
		return fmt.Errorf("truncate must be at least %d, got %d", MinTruncate, c.Truncate)
	}
	if c.InheritedByLimit <= 0 {
		return fmt.Errorf("inherited_by_limit must be positive, got %d", c.InheritedByLimit)
	}
	return nil
}

// RequireSources reports an error when no base vocabulary is configured.
func (c *Config) RequireSources() error {
	if c.Base == "" {
		return fmt.Errorf("no base vocabulary configured (set base in %s or pass --base)", ProjectConfigFile)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := applyFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

// applyFile decodes the file over config; keys absent from the file keep
// their current values.
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	config.resolvePaths(filepath.Dir(path))
	return nil
}

// resolvePaths anchors relative source and output paths at dir, the
// directory of the file that set them.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Base, &c.Extensions, &c.Output, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Merge merges another config into this one. Non-zero values of other take
// precedence; booleans can only be switched on.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	mergeString(&c.Base, other.Base)
	mergeString(&c.Extensions, other.Extensions)
	mergeString(&c.Output, other.Output)
	mergeString(&c.BaseContext, other.BaseContext)
	mergeString(&c.ExtensionContext, other.ExtensionContext)
	mergeString(&c.ConflictStrategy, other.ConflictStrategy)
	mergeString(&c.Selection.Mode, other.Selection.Mode)
	mergeString(&c.MetricsFile, other.MetricsFile)

	if len(other.Formats) > 0 {
		c.Formats = slices.Clone(other.Formats)
	}
	if len(other.Selection.Types) > 0 {
		c.Selection.Types = slices.Clone(other.Selection.Types)
	}
	if other.Concurrency > 0 {
		c.Concurrency = other.Concurrency
	}
	if other.Truncate > 0 {
		c.Truncate = other.Truncate
	}
	if other.InheritedByLimit > 0 {
		c.InheritedByLimit = other.InheritedByLimit
	}

	c.Index = c.Index || other.Index
	c.Search.SQLite = c.Search.SQLite || other.Search.SQLite
	c.RDF = c.RDF || other.RDF
	c.StampGeneratedAt = c.StampGeneratedAt || other.StampGeneratedAt
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// MatchTypes returns the names matched by the configured selection
// patterns, in the order of names. Patterns without glob syntax match
// exactly. The second result lists literal names that matched nothing.
func (s SelectionConfig) MatchTypes(names []string) (matched, missing []string) {
	for _, name := range names {
		for _, p := range s.Types {
			if ok, _ := doublestar.Match(p, name); ok {
				matched = append(matched, name)
				break
			}
		}
	}
	for _, p := range s.Types {
		if !containsMeta(p) && !slices.Contains(matched, p) {
			missing = append(missing, p)
		}
	}
	return matched, missing
}

func containsMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}
