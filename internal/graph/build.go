package graph

import (
	"fmt"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// fieldNames maps relationship types to the vocabulary field they come from.
var fieldNames = map[RelType]string{
	RelSubclassOf:     "subClassOf",
	RelDomainIncludes: "domainIncludes",
	RelRangeIncludes:  "rangeIncludes",
	RelSubPropertyOf:  "subPropertyOf",
	RelInverseOf:      "inverseOf",
	RelSupersededBy:   "supersededBy",
}

// BuildFromVocabulary converts a merged vocabulary into a graph.
//
// Every type becomes a class node and every property a property node.
// Edges are added for all references, including those whose target is not
// defined; Dangling reports them.
func BuildFromVocabulary(v *vocab.ExtendedVocabulary) *KnowledgeGraph {
	g := NewKnowledgeGraph()

	for _, name := range v.TypeNames() {
		t, _ := v.Type(name)
		g.AddNode(&GraphNode{
			ID:          GenerateID(NodeClass, name),
			Label:       NodeClass,
			Name:        name,
			Source:      string(t.Source),
			URI:         v.EntityID(name, t.Source),
			Description: t.Description.Plain,
		})
	}
	for _, name := range v.PropertyNames() {
		p, _ := v.Property(name)
		g.AddNode(&GraphNode{
			ID:          GenerateID(NodeProperty, name),
			Label:       NodeProperty,
			Name:        name,
			Source:      string(p.Source),
			URI:         v.EntityID(name, p.Source),
			Description: p.Description.Plain,
		})
	}

	for _, name := range v.TypeNames() {
		t, _ := v.Type(name)
		src := GenerateID(NodeClass, name)
		for i, parent := range t.SubClassOf {
			addEdge(g, RelSubclassOf, src, GenerateID(NodeClass, parent), i)
		}
	}
	for _, name := range v.PropertyNames() {
		p, _ := v.Property(name)
		src := GenerateID(NodeProperty, name)
		for i, d := range p.DomainIncludes {
			addEdge(g, RelDomainIncludes, src, GenerateID(NodeClass, d), i)
		}
		for i, r := range p.RangeIncludes {
			addEdge(g, RelRangeIncludes, src, GenerateID(NodeClass, r), i)
		}
		if p.SubPropertyOf != "" {
			addEdge(g, RelSubPropertyOf, src, GenerateID(NodeProperty, p.SubPropertyOf), 0)
		}
		if p.InverseOf != "" {
			addEdge(g, RelInverseOf, src, GenerateID(NodeProperty, p.InverseOf), 0)
		}
		if p.SupersededBy != "" {
			addEdge(g, RelSupersededBy, src, GenerateID(NodeProperty, p.SupersededBy), 0)
		}
	}
	return g
}

func addEdge(g *KnowledgeGraph, relType RelType, source, target string, pos int) {
	g.AddRelationship(&GraphRelationship{
		ID:       GenerateRelID(relType, source, target),
		Type:     relType,
		Source:   source,
		Target:   target,
		Position: pos,
	})
}

// DanglingWarnings reports every dangling relationship as a warning on the
// entity that makes the reference, in relationship ID order.
func DanglingWarnings(g *KnowledgeGraph) []vocab.Warning {
	dangling := g.Dangling()
	out := make([]vocab.Warning, 0, len(dangling))
	for _, rel := range dangling {
		out = append(out, vocab.Warning{
			Kind:    vocab.WarnDanglingReference,
			Entity:  NameFromID(rel.Source),
			Message: fmt.Sprintf("%s references unknown name %q", fieldNames[rel.Type], NameFromID(rel.Target)),
		})
	}
	return out
}
