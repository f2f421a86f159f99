package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "https://schema.org", cfg.BaseContext)
	assert.Equal(t, "https://schema.org.ai", cfg.ExtensionContext)
	assert.Equal(t, "extension-wins", cfg.ConflictStrategy)
	assert.Equal(t, []string{"mdx", "md", "json", "html"}, cfg.Formats)
	assert.Equal(t, SelectDefault, cfg.Selection.Mode)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 100, cfg.Truncate)
	assert.Equal(t, 50, cfg.InheritedByLimit)
	assert.True(t, cfg.Index)
	assert.False(t, cfg.Search.SQLite)
	assert.False(t, cfg.RDF)
	assert.False(t, cfg.StampGeneratedAt)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"ValidDefault", func(c *Config) {}, ""},
		{"UnknownStrategy", func(c *Config) { c.ConflictStrategy = "newest-wins" }, "conflict_strategy"},
		{"NoFormats", func(c *Config) { c.Formats = nil }, "formats"},
		{"UnknownFormat", func(c *Config) { c.Formats = []string{"md", "pdf"} }, "pdf"},
		{"UnknownSelection", func(c *Config) { c.Selection.Mode = "some" }, "selection.mode"},
		{"TypesWithoutPatterns", func(c *Config) { c.Selection.Mode = SelectTypes }, "selection.types"},
		{"BadPattern", func(c *Config) {
			c.Selection = SelectionConfig{Mode: SelectTypes, Types: []string{"[Person"}}
		}, "pattern"},
		{"ValidPatterns", func(c *Config) {
			c.Selection = SelectionConfig{Mode: SelectTypes, Types: []string{"Creative*", "Person"}}
		}, ""},
		{"ZeroConcurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"TruncateTooSmall", func(c *Config) { c.Truncate = 9 }, "truncate"},
		{"TruncateMinimum", func(c *Config) { c.Truncate = MinTruncate }, ""},
		{"ZeroInheritedByLimit", func(c *Config) { c.InheritedByLimit = 0 }, "inherited_by_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_RequireSources(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Error(t, cfg.RequireSources())
	cfg.Base = "schemaorg.jsonld"
	assert.NoError(t, cfg.RequireSources())
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "schemadoc.yaml")
	writeFile(t, path, `
base: data/schemaorg.jsonld
extensions: /abs/extensions
formats: [md, json]
selection:
  mode: types
  types: ["Creative*"]
index: false
search:
  sqlite: true
concurrency: 2
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data/schemaorg.jsonld"), cfg.Base)
	assert.Equal(t, "/abs/extensions", cfg.Extensions)
	assert.Equal(t, []string{"md", "json"}, cfg.Formats)
	assert.Equal(t, SelectTypes, cfg.Selection.Mode)
	assert.Equal(t, []string{"Creative*"}, cfg.Selection.Types)
	assert.False(t, cfg.Index)
	assert.True(t, cfg.Search.SQLite)
	assert.Equal(t, 2, cfg.Concurrency)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 100, cfg.Truncate)
	assert.Equal(t, "extension-wins", cfg.ConflictStrategy)

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFromFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		bad := filepath.Join(dir, "bad.yaml")
		writeFile(t, bad, "formats: [md\n")
		_, err := LoadFromFile(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.yaml")
	})
}

func TestConfig_SaveToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "schemadoc.yaml")
	cfg := DefaultConfig()
	cfg.Base = "/data/schemaorg.jsonld"
	cfg.RDF = true
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/schemaorg.jsonld", loaded.Base)
	assert.True(t, loaded.RDF)
	assert.Equal(t, cfg.Formats, loaded.Formats)
}

func TestConfig_Merge(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Base = "base.jsonld"
	cfg.Merge(&Config{
		Output:      "site",
		Formats:     []string{"html"},
		Concurrency: 3,
		RDF:         true,
	})

	assert.Equal(t, "base.jsonld", cfg.Base)
	assert.Equal(t, "site", cfg.Output)
	assert.Equal(t, []string{"html"}, cfg.Formats)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 100, cfg.Truncate)
	assert.True(t, cfg.RDF)
	assert.True(t, cfg.Index)

	cfg.Merge(nil)
	assert.Equal(t, "site", cfg.Output)
}

func TestSelectionConfig_MatchTypes(t *testing.T) {
	t.Parallel()

	names := []string{"Action", "CreativeWork", "CreativeWorkSeason", "Person", "ReadAction"}
	sel := SelectionConfig{Mode: SelectTypes, Types: []string{"Creative*", "*Action", "Person", "Robot"}}

	matched, missing := sel.MatchTypes(names)
	assert.Equal(t, []string{"Action", "CreativeWork", "CreativeWorkSeason", "Person", "ReadAction"}, matched)
	assert.Equal(t, []string{"Robot"}, missing)
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ProjectConfigFile), `
base: schemaorg.jsonld
output: site
rdf: true
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	t.Run("ProjectConfigFromParent", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewLoader(nil).WithDir(nested).Load("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "schemaorg.jsonld"), cfg.Base)
		assert.Equal(t, filepath.Join(root, "site"), cfg.Output)
		assert.True(t, cfg.RDF)
	})

	t.Run("ExplicitFileOverrides", func(t *testing.T) {
		t.Parallel()
		explicit := filepath.Join(t.TempDir(), "ci.yaml")
		writeFile(t, explicit, "rdf: false\nformats: [json]\n")

		cfg, err := NewLoader(nil).WithDir(nested).Load(explicit)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "schemaorg.jsonld"), cfg.Base)
		assert.False(t, cfg.RDF)
		assert.Equal(t, []string{"json"}, cfg.Formats)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		t.Parallel()
		_, err := NewLoader(nil).WithDir(nested).Load(filepath.Join(root, "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("InvalidResult", func(t *testing.T) {
		t.Parallel()
		explicit := filepath.Join(t.TempDir(), "bad.yaml")
		writeFile(t, explicit, "conflict_strategy: newest-wins\n")
		_, err := NewLoader(nil).WithDir(nested).Load(explicit)
		assert.Error(t, err)
	})
}
