package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

func TestForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		format string
		ok     bool
	}{
		{"schemaorg.jsonld", "jsonld", true},
		{"data/ext.JSON", "jsonld", true},
		{"ext/agents.yaml", "yaml", true},
		{"ext/agents.yml", "yaml", true},
		{"README.md", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			p, ok := ForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.format, p.Format())
			}
		})
	}
}

func TestJSONLDParser_Parse(t *testing.T) {
	t.Parallel()

	parser := &JSONLDParser{}

	t.Run("Graph", func(t *testing.T) {
		t.Parallel()
		doc, err := parser.Parse("s.jsonld", []byte(`{"@context": {"schema": "https://schema.org/"},
			"@graph": [{"@id": "schema:Thing", "@type": "rdfs:Class", "rdfs:label": "Thing"}]}`))
		require.NoError(t, err)

		obj, ok := doc.(map[string]any)
		require.True(t, ok)
		graph, ok := obj["@graph"].([]any)
		require.True(t, ok)
		require.Len(t, graph, 1)
		assert.Equal(t, "Thing", graph[0].(map[string]any)["rdfs:label"])
	})

	t.Run("List", func(t *testing.T) {
		t.Parallel()
		doc, err := parser.Parse("l.json", []byte(`[{"name": "A"}, {"name": "B"}]`))
		require.NoError(t, err)
		assert.Len(t, doc, 2)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("bad.jsonld", []byte(`{"@graph": [`))
		require.Error(t, err)
		assert.ErrorIs(t, err, vocab.ErrParse)
		assert.Contains(t, err.Error(), "bad.jsonld")
	})

	t.Run("DuplicateKeys", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("dup.json", []byte(`{"name": "A", "name": "B"}`))
		assert.ErrorIs(t, err, vocab.ErrParse)
	})
}

func TestYAMLParser_Parse(t *testing.T) {
	t.Parallel()

	parser := &YAMLParser{}

	t.Run("Entities", func(t *testing.T) {
		t.Parallel()
		doc, err := parser.Parse("ext.yaml", []byte(`
"@graph":
  - "$type": Class
    name: Agent
    subClassOf: [Thing]
  - "$type": Property
    name: goal
    domainIncludes:
      - Agent
`))
		require.NoError(t, err)

		obj, ok := doc.(map[string]any)
		require.True(t, ok)
		graph, ok := obj["@graph"].([]any)
		require.True(t, ok)
		require.Len(t, graph, 2)
		agent, ok := graph[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Agent", agent["name"])
		assert.Equal(t, []any{"Thing"}, agent["subClassOf"])
	})

	t.Run("NonStringKeys", func(t *testing.T) {
		t.Parallel()
		doc, err := parser.Parse("odd.yaml", []byte("1: one\ntrue: yes\n"))
		require.NoError(t, err)
		obj, ok := doc.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "one", obj["1"])
	})

	t.Run("LoadsLikeJSON", func(t *testing.T) {
		t.Parallel()
		doc, err := parser.Parse("ext.yml", []byte("- {\"$type\": Class, name: Agent}\n"))
		require.NoError(t, err)

		v, warnings, err := vocab.NewLoader(nil).Load(doc, "ext.yml")
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Contains(t, v.Types, "Agent")
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("bad.yaml", []byte("key: [unclosed\n"))
		assert.ErrorIs(t, err, vocab.ErrParse)
	})
}
