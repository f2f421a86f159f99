package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/schemadoc-go/internal/graph"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "SimpleWord",
			input:    "user",
			expected: []string{"user"},
		},
		{
			name:     "CamelCase",
			input:    "UserService",
			expected: []string{"service", "user", "userservice"},
		},
		{
			name:     "SnakeCase",
			input:    "parse_input",
			expected: []string{"input", "parse"},
		},
		{
			name:     "MixedCase",
			input:    "getURL",
			expected: []string{"get", "geturl", "url"},
		},
		{
			name:     "WithNumbers",
			input:    "parseHTTP2",
			expected: []string{"2", "http2", "parse", "parsehttp", "parsehttp2"},
		},
		{
			name:     "PrefixedName",
			input:    "schema:Person",
			expected: []string{"person", "schema"},
		},
		{
			name:     "Sentence",
			input:    "A person (alive, dead).",
			expected: []string{"a", "alive", "dead", "person"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}

	t.Run("EmptyString", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, tokenize(""))
		assert.Empty(t, tokenize(" -- "))
	})
}

func TestNodeTokens(t *testing.T) {
	t.Parallel()

	freq := nodeTokens(&graph.GraphNode{Name: "CreativeWork", Description: "A creative thing."})

	assert.Equal(t, 3, freq["creative"])
	assert.Equal(t, 2, freq["work"])
	assert.Equal(t, 1, freq["thing"])
}

func TestFTSIndex(t *testing.T) {
	t.Parallel()

	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()
	loadFixture(t, backend)

	t.Run("Scores", func(t *testing.T) {
		scores, err := backend.fts.Scores("item name")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{
			"property:name": 4,
			"class:Thing":   1,
		}, scores)
	})

	t.Run("NoMatch", func(t *testing.T) {
		scores, err := backend.fts.Scores("zebra")
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("IndexSize", func(t *testing.T) {
		size, err := backend.fts.IndexSize()
		require.NoError(t, err)
		assert.Positive(t, size)
	})

	t.Run("Uninitialized", func(t *testing.T) {
		fts := NewFTSIndex(nil)
		scores, err := fts.Scores("thing")
		require.NoError(t, err)
		assert.Empty(t, scores)
		size, err := fts.IndexSize()
		require.NoError(t, err)
		assert.Zero(t, size)
	})
}
