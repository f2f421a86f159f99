package vocab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaGraph() map[string]any {
	return map[string]any{
		"@context": map[string]any{"schema": "https://schema.org/"},
		"@graph": []any{
			map[string]any{
				"@id":        "schema:Thing",
				"@type":      "rdfs:Class",
				"rdfs:label": "Thing",
				"rdfs:comment": "The most generic type of item.",
			},
			map[string]any{
				"@id":             "schema:CreativeWork",
				"@type":           "rdfs:Class",
				"rdfs:label":      "CreativeWork",
				"rdfs:comment":    "The most generic kind of creative work.",
				"rdfs:subClassOf": map[string]any{"@id": "schema:Thing"},
			},
			map[string]any{
				"@id":   "schema:headline",
				"@type": "rdf:Property",
				"rdfs:label": map[string]any{
					"@language": "en",
					"@value":    "headline",
				},
				"rdfs:comment":          "Headline of the article.",
				"schema:domainIncludes": []any{map[string]any{"@id": "schema:CreativeWork"}},
				"schema:rangeIncludes":  map[string]any{"@id": "schema:Text"},
			},
		},
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("GraphDocument", func(t *testing.T) {
		t.Parallel()
		v, warnings, err := NewLoader(nil).Load(schemaGraph(), "base")

		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, v.Types, 2)
		require.Len(t, v.Properties, 1)

		cw := v.Types["CreativeWork"]
		require.NotNil(t, cw)
		assert.Equal(t, "schema:CreativeWork", cw.ID)
		assert.Equal(t, []string{"Thing"}, cw.SubClassOf)
		assert.Equal(t, "The most generic kind of creative work.", cw.Description.Plain)

		headline := v.Properties["headline"]
		require.NotNil(t, headline)
		assert.Equal(t, []string{"CreativeWork"}, headline.DomainIncludes)
		assert.Equal(t, []string{"Text"}, headline.RangeIncludes)
	})

	t.Run("PlainKeysAndDollarType", func(t *testing.T) {
		t.Parallel()
		raw := []any{
			map[string]any{"$type": "Class", "name": "Agent", "description": "An autonomous actor", "subClassOf": "Thing"},
			map[string]any{"$type": "Property", "name": "goal", "from": "Agent", "to": []any{"Text", "Goal", "Text"}},
		}
		v, warnings, err := NewLoader(nil).Load(raw, "ext")

		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, []string{"Thing"}, v.Types["Agent"].SubClassOf)
		assert.Equal(t, []string{"Agent"}, v.Properties["goal"].DomainIncludes)
		assert.Equal(t, []string{"Text", "Goal"}, v.Properties["goal"].RangeIncludes)
	})

	t.Run("SingleEntity", func(t *testing.T) {
		t.Parallel()
		raw := map[string]any{"@type": []any{"rdfs:Class"}, "rdfs:label": "Thing"}
		v, _, err := NewLoader(nil).Load(raw, "one")

		require.NoError(t, err)
		assert.Contains(t, v.Types, "Thing")
	})

	t.Run("FullIRIKeys", func(t *testing.T) {
		t.Parallel()
		raw := []any{map[string]any{
			"@type": "http://www.w3.org/1999/02/22-rdf-syntax-ns#Property",
			"http://www.w3.org/2000/01/rdf-schema#label": "email",
			"https://schema.org/domainIncludes":          "https://schema.org/Person",
			"https://schema.org/inverseOf":               "schema:emailOf",
		}}
		v, _, err := NewLoader(nil).Load(raw, "iri")

		require.NoError(t, err)
		p := v.Properties["email"]
		require.NotNil(t, p)
		assert.Equal(t, []string{"Person"}, p.DomainIncludes)
		assert.Equal(t, "emailOf", p.InverseOf)
	})

	t.Run("MissingNameSkipped", func(t *testing.T) {
		t.Parallel()
		raw := []any{
			map[string]any{"@type": "rdfs:Class", "rdfs:comment": "nameless"},
			map[string]any{"@type": "rdfs:Class", "rdfs:label": "Thing"},
		}
		v, warnings, err := NewLoader(nil).Load(raw, "base")

		require.NoError(t, err)
		assert.Len(t, v.Types, 1)
		require.Len(t, warnings, 1)
		assert.Equal(t, WarnParse, warnings[0].Kind)
		assert.Contains(t, warnings[0].Message, "missing name")
		assert.True(t, warnings[0].Skips())
	})

	t.Run("UnknownKindSkipped", func(t *testing.T) {
		t.Parallel()
		raw := []any{map[string]any{"@type": "schema:DataType", "rdfs:label": "Text"}, "not-an-object"}
		v, warnings, err := NewLoader(nil).Load(raw, "base")

		require.NoError(t, err)
		assert.Zero(t, v.Len())
		require.Len(t, warnings, 2)
		assert.Equal(t, "Text", warnings[0].Entity)
		assert.Contains(t, warnings[0].Message, "unknown entity kind")
		assert.Contains(t, warnings[1].Message, "not an object")
	})

	t.Run("DuplicateLastWriteWins", func(t *testing.T) {
		t.Parallel()
		raw := []any{
			map[string]any{"@type": "Class", "name": "Thing", "description": "first"},
			map[string]any{"@type": "Class", "name": "Thing", "description": "second"},
		}
		v, warnings, err := NewLoader(nil).Load(raw, "base")

		require.NoError(t, err)
		assert.Equal(t, "second", v.Types["Thing"].Description.Plain)
		require.Len(t, warnings, 1)
		assert.Equal(t, WarnDuplicate, warnings[0].Kind)
		assert.False(t, warnings[0].Skips())
	})

	t.Run("UnrecognisedShape", func(t *testing.T) {
		t.Parallel()
		_, _, err := NewLoader(nil).Load("just a string", "bad")

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		assert.False(t, IsFatal(err))
	})

	t.Run("GraphNotAList", func(t *testing.T) {
		t.Parallel()
		_, _, err := NewLoader(nil).Load(map[string]any{"@graph": "nope"}, "bad")

		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestLocalName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Thing":                     "Thing",
		"schema:Thing":              "Thing",
		"https://schema.org/Thing":  "Thing",
		"http://example.com/ns#foo": "foo",
		"rdfs:subClassOf":           "subClassOf",
	}
	for in, want := range cases {
		assert.Equal(t, want, LocalName(in), in)
	}
}
