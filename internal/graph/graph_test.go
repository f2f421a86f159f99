package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classNode(name string) *GraphNode {
	return &GraphNode{ID: GenerateID(NodeClass, name), Label: NodeClass, Name: name, Source: "base"}
}

func propNode(name string) *GraphNode {
	return &GraphNode{ID: GenerateID(NodeProperty, name), Label: NodeProperty, Name: name, Source: "base"}
}

func edge(relType RelType, src, dst string, pos int) *GraphRelationship {
	return &GraphRelationship{ID: GenerateRelID(relType, src, dst), Type: relType, Source: src, Target: dst, Position: pos}
}

func TestNewKnowledgeGraph(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.RelationshipCount())
}

func TestKnowledgeGraph_AddNode(t *testing.T) {
	t.Parallel()

	t.Run("AddSingle", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()
		node := classNode("Thing")

		g.AddNode(node)

		assert.Equal(t, 1, g.NodeCount())
		assert.Equal(t, node, g.GetNode("class:Thing"))
	})

	t.Run("AddMultiple", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(classNode("Thing"))
		g.AddNode(classNode("Person"))
		g.AddNode(propNode("email"))

		assert.Equal(t, 3, g.NodeCount())
		assert.Len(t, g.GetNodesByLabel(NodeClass), 2)
		assert.Len(t, g.GetNodesByLabel(NodeProperty), 1)
	})

	t.Run("ReplaceExisting", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(&GraphNode{ID: "class:Thing", Label: NodeClass, Name: "Thing", Source: "base"})
		g.AddNode(&GraphNode{ID: "class:Thing", Label: NodeClass, Name: "Thing", Source: "extension"})

		assert.Equal(t, 1, g.NodeCount())
		assert.Equal(t, "extension", g.GetNode("class:Thing").Source)
	})

	t.Run("ReplaceWithDifferentLabel", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(&GraphNode{ID: "x", Label: NodeClass, Name: "x"})
		g.AddNode(&GraphNode{ID: "x", Label: NodeProperty, Name: "x"})

		assert.Empty(t, g.GetNodesByLabel(NodeClass))
		assert.Len(t, g.GetNodesByLabel(NodeProperty), 1)
	})
}

func TestKnowledgeGraph_AddRelationship(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddRelationship(edge(RelSubclassOf, "class:A", "class:B", 0))
	g.AddRelationship(&GraphRelationship{ID: GenerateRelID(RelSubclassOf, "class:A", "class:B"),
		Type: RelSubclassOf, Source: "class:A", Target: "class:B", Position: 3})

	assert.Equal(t, 1, g.RelationshipCount())
	out := g.GetOutgoing("class:A")
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Position)
}

func TestKnowledgeGraph_Adjacency(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddRelationship(edge(RelSubclassOf, "class:C", "class:B", 1))
	g.AddRelationship(edge(RelSubclassOf, "class:C", "class:A", 0))
	g.AddRelationship(edge(RelDomainIncludes, "property:p", "class:A", 0))

	t.Run("OutgoingOrderedByPosition", func(t *testing.T) {
		t.Parallel()
		out := g.GetOutgoing("class:C", RelSubclassOf)
		require.Len(t, out, 2)
		assert.Equal(t, "class:A", out[0].Target)
		assert.Equal(t, "class:B", out[1].Target)
	})

	t.Run("IncomingFiltered", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, g.GetIncoming("class:A"), 2)
		in := g.GetIncoming("class:A", RelDomainIncludes)
		require.Len(t, in, 1)
		assert.Equal(t, "property:p", in[0].Source)
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, g.GetOutgoing("class:Z"))
		assert.Nil(t, g.GetIncoming("class:Z"))
	})
}

func TestKnowledgeGraph_SortedListings(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddNode(classNode("Zebra"))
	g.AddNode(classNode("Apple"))
	g.AddNode(propNode("name"))
	g.AddRelationship(edge(RelRangeIncludes, "property:name", "class:Zebra", 0))
	g.AddRelationship(edge(RelRangeIncludes, "property:name", "class:Apple", 1))

	classes := g.GetNodesByLabel(NodeClass)
	require.Len(t, classes, 2)
	assert.Equal(t, "Apple", classes[0].Name)
	assert.Nil(t, g.GetNodesByLabel("unknown"))

	rels := g.GetRelationshipsByType(RelRangeIncludes)
	require.Len(t, rels, 2)
	assert.Equal(t, "class:Apple", rels[0].Target)

	assert.Len(t, g.Nodes(), 3)
	assert.Len(t, g.Relationships(), 2)
	assert.Equal(t, map[string]int{"nodes": 3, "relationships": 2, "classes": 2, "properties": 1, "dangling": 0}, g.Stats())
}

func TestKnowledgeGraph_Dangling(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddNode(classNode("Person"))
	g.AddNode(propNode("worksFor"))
	g.AddRelationship(edge(RelDomainIncludes, "property:worksFor", "class:Person", 0))
	g.AddRelationship(edge(RelRangeIncludes, "property:worksFor", "class:UnknownOrg", 0))

	dangling := g.Dangling()

	require.Len(t, dangling, 1)
	assert.Equal(t, "UnknownOrg", NameFromID(dangling[0].Target))
	assert.Equal(t, 1, g.Stats()["dangling"])
}

func TestKnowledgeGraph_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			g.AddNode(classNode(fmt.Sprintf("Type%d", id)))
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, g.NodeCount())
}
