package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

func fixtureVocabulary(t *testing.T) *vocab.ExtendedVocabulary {
	t.Helper()
	desc := func(s string) vocab.Description { return vocab.Description{Plain: s, Rich: s} }

	base := vocab.NewVocabulary("base")
	base.Types["Thing"] = &vocab.Type{Name: "Thing", Description: desc("The most generic type of item.")}
	base.Types["CreativeWork"] = &vocab.Type{Name: "CreativeWork", SubClassOf: []string{"Thing"},
		Description: desc("The most generic kind of creative work, including books.")}
	base.Types["Person"] = &vocab.Type{Name: "Person", SubClassOf: []string{"Thing"},
		Description: desc("A person (alive, dead, undead, or fictional).")}
	base.Properties["name"] = &vocab.Property{Name: "name", DomainIncludes: []string{"Thing"},
		Description: desc("The name of the item.")}
	base.Properties["author"] = &vocab.Property{Name: "author", DomainIncludes: []string{"CreativeWork"},
		RangeIncludes: []string{"Person", "Organization"}, Description: desc("The author of this content.")}

	v, err := vocab.Merge(base, nil, vocab.MergeOptions{})
	require.NoError(t, err)
	return v
}

// fixtureDocuments returns one document per node with its corpus slug.
func fixtureDocuments(g *graph.KnowledgeGraph) []Document {
	var docs []Document
	for _, n := range g.Nodes() {
		kind := vocab.KindType
		if n.Label == graph.NodeProperty {
			kind = vocab.KindProperty
		}
		docs = append(docs, Document{
			NodeID:   n.ID,
			Path:     render.Dir(kind) + "/" + n.Name,
			Markdown: "# " + n.Name + "\n",
		})
	}
	return docs
}

func loadFixture(t *testing.T, b Backend) *graph.KnowledgeGraph {
	t.Helper()
	g := graph.BuildFromVocabulary(fixtureVocabulary(t))
	require.NoError(t, b.BulkLoad(context.Background(), g, fixtureDocuments(g)))
	return g
}

func names(nodes []*graph.GraphNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

// testBackendContract runs the behavior every Backend must share.
func testBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	g := loadFixture(t, b)

	t.Run("Counts", func(t *testing.T) {
		assert.Equal(t, 5, b.NodeCount())
		assert.Equal(t, g.RelationshipCount(), b.RelationshipCount())
		assert.Equal(t, 6, b.RelationshipCount())
	})

	t.Run("GetNode", func(t *testing.T) {
		node, err := b.GetNode(ctx, "class:Person")
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, "Person", node.Name)
		assert.Equal(t, graph.NodeClass, node.Label)
		assert.Equal(t, "https://schema.org/Person", node.URI)
		assert.Equal(t, "base", node.Source)

		missing, err := b.GetNode(ctx, "class:Nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("GetNodesByLabel", func(t *testing.T) {
		classes, err := b.GetNodesByLabel(ctx, graph.NodeClass)
		require.NoError(t, err)
		assert.Equal(t, []string{"CreativeWork", "Person", "Thing"}, names(classes))

		props, err := b.GetNodesByLabel(ctx, graph.NodeProperty)
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "name"}, names(props))
	})

	t.Run("GetNeighbors", func(t *testing.T) {
		children, err := b.GetNeighbors(ctx, "class:Thing", graph.RelSubclassOf, Incoming)
		require.NoError(t, err)
		assert.Equal(t, []string{"CreativeWork", "Person"}, names(children))

		parents, err := b.GetNeighbors(ctx, "class:Person", graph.RelSubclassOf, Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []string{"Thing"}, names(parents))

		ranges, err := b.GetNeighbors(ctx, "property:author", graph.RelRangeIncludes, Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []string{"Person"}, names(ranges), "dangling Organization is skipped")

		all, err := b.GetNeighbors(ctx, "property:author", "", Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []string{"CreativeWork", "Person"}, names(all))

		none, err := b.GetNeighbors(ctx, "class:Nobody", graph.RelSubclassOf, Incoming)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("GetDocument", func(t *testing.T) {
		doc, err := b.GetDocument(ctx, "property:name")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "properties/name", doc.Path)
		assert.Equal(t, "# name\n", doc.Markdown)

		missing, err := b.GetDocument(ctx, "property:nothing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("FTSSearch", func(t *testing.T) {
		results, err := b.FTSSearch(ctx, "item name", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "name", results[0].Name)
		assert.Equal(t, 4.0, results[0].Score)
		assert.Equal(t, "properties/name", results[0].Path)
		assert.Equal(t, "property", results[0].Label)
		assert.Equal(t, "Thing", results[1].Name)
		assert.Equal(t, "The most generic type of item.", results[1].Snippet)

		limited, err := b.FTSSearch(ctx, "item name", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		camel, err := b.FTSSearch(ctx, "creative", 10)
		require.NoError(t, err)
		require.Len(t, camel, 1)
		assert.Equal(t, "CreativeWork", camel[0].Name)

		empty, err := b.FTSSearch(ctx, "", 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("BulkLoadReplaces", func(t *testing.T) {
		small := graph.NewKnowledgeGraph()
		small.AddNode(&graph.GraphNode{ID: "class:Robot", Label: graph.NodeClass, Name: "Robot"})
		require.NoError(t, b.BulkLoad(ctx, small, nil))

		assert.Equal(t, 1, b.NodeCount())
		assert.Zero(t, b.RelationshipCount())
		old, err := b.GetNode(ctx, "class:Thing")
		require.NoError(t, err)
		assert.Nil(t, old)
		results, err := b.FTSSearch(ctx, "item", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	require.NoError(t, backend.Initialize("", false))
	assert.True(t, backend.IsIndexed())

	testBackendContract(t, backend)

	require.NoError(t, backend.Close())
	assert.False(t, backend.IsIndexed())
	assert.Zero(t, backend.NodeCount())
}
