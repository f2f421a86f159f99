// Package graph provides the in-memory vocabulary graph for schemadoc.
//
// It provides a lightweight, map-backed graph that stores GraphNode and
// GraphRelationship instances with O(1) lookups by ID. Secondary indexes
// on label, relationship type, and adjacency lists ensure that queries
// scale linearly with the result set rather than the total graph size.
package graph

import (
	"sort"
	"sync"
)

// KnowledgeGraph is an in-memory directed graph of vocabulary entities
// and their relationships.
//
// Nodes are keyed by their ID string; relationships are keyed likewise.
// A relationship may target a node that is not in the graph.
type KnowledgeGraph struct {
	mu            sync.RWMutex
	nodes         map[string]*GraphNode
	relationships map[string]*GraphRelationship

	// Secondary indexes, kept in sync by the add helpers.
	byLabel   map[NodeLabel]map[string]*GraphNode
	byRelType map[RelType]map[string]*GraphRelationship
	outgoing  map[string]map[string]*GraphRelationship
	incoming  map[string]map[string]*GraphRelationship
}

// NewKnowledgeGraph creates a new empty knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes:         make(map[string]*GraphNode),
		relationships: make(map[string]*GraphRelationship),
		byLabel:       make(map[NodeLabel]map[string]*GraphNode),
		byRelType:     make(map[RelType]map[string]*GraphRelationship),
		outgoing:      make(map[string]map[string]*GraphRelationship),
		incoming:      make(map[string]map[string]*GraphRelationship),
	}
}

// NodeCount returns the number of nodes without list materialization.
func (g *KnowledgeGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// RelationshipCount returns the number of relationships without list materialization.
func (g *KnowledgeGraph) RelationshipCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relationships)
}

// Nodes returns all nodes sorted by ID.
func (g *KnowledgeGraph) Nodes() []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*GraphNode, 0, len(g.nodes))
	for _, node := range g.nodes {
		result = append(result, node)
	}
	sortNodes(result)
	return result
}

// Relationships returns all relationships sorted by ID.
func (g *KnowledgeGraph) Relationships() []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*GraphRelationship, 0, len(g.relationships))
	for _, rel := range g.relationships {
		result = append(result, rel)
	}
	sortRels(result)
	return result
}

// AddNode adds a node to the graph, replacing any existing node with the same ID.
// If the node's label differs from an existing node, the old label index is updated.
func (g *KnowledgeGraph) AddNode(node *GraphNode) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.nodes[node.ID]; ok && old.Label != node.Label {
		delete(g.byLabel[old.Label], node.ID)
	}

	g.nodes[node.ID] = node

	if g.byLabel[node.Label] == nil {
		g.byLabel[node.Label] = make(map[string]*GraphNode)
	}
	g.byLabel[node.Label][node.ID] = node
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (g *KnowledgeGraph) GetNode(nodeID string) *GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[nodeID]
}

// AddRelationship adds a relationship to the graph, replacing any existing relationship with the same ID.
func (g *KnowledgeGraph) AddRelationship(rel *GraphRelationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.relationships[rel.ID]; ok {
		delete(g.byRelType[old.Type], rel.ID)
		delete(g.outgoing[old.Source], rel.ID)
		delete(g.incoming[old.Target], rel.ID)
	}

	g.relationships[rel.ID] = rel

	if g.byRelType[rel.Type] == nil {
		g.byRelType[rel.Type] = make(map[string]*GraphRelationship)
	}
	g.byRelType[rel.Type][rel.ID] = rel

	if g.outgoing[rel.Source] == nil {
		g.outgoing[rel.Source] = make(map[string]*GraphRelationship)
	}
	g.outgoing[rel.Source][rel.ID] = rel

	if g.incoming[rel.Target] == nil {
		g.incoming[rel.Target] = make(map[string]*GraphRelationship)
	}
	g.incoming[rel.Target][rel.ID] = rel
}

// GetNodesByLabel returns all nodes with the given label, sorted by ID.
func (g *KnowledgeGraph) GetNodesByLabel(label NodeLabel) []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes, ok := g.byLabel[label]
	if !ok {
		return nil
	}

	result := make([]*GraphNode, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node)
	}
	sortNodes(result)
	return result
}

// GetRelationshipsByType returns all relationships with the given type, sorted by ID.
func (g *KnowledgeGraph) GetRelationshipsByType(relType RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rels, ok := g.byRelType[relType]
	if !ok {
		return nil
	}

	result := make([]*GraphRelationship, 0, len(rels))
	for _, rel := range rels {
		result = append(result, rel)
	}
	sortRels(result)
	return result
}

// GetOutgoing returns relationships originating from the given node ID,
// ordered by position then target.
// If relType is provided, only relationships of that type are returned.
func (g *KnowledgeGraph) GetOutgoing(nodeID string, relType ...RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.outgoing[nodeID], relType)
}

// GetIncoming returns relationships targeting the given node ID,
// ordered by position then target.
// If relType is provided, only relationships of that type are returned.
func (g *KnowledgeGraph) GetIncoming(nodeID string, relType ...RelType) []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.incoming[nodeID], relType)
}

// Dangling returns relationships whose target node does not exist,
// sorted by ID.
func (g *KnowledgeGraph) Dangling() []*GraphRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []*GraphRelationship
	for _, rel := range g.relationships {
		if _, ok := g.nodes[rel.Target]; !ok {
			result = append(result, rel)
		}
	}
	sortRels(result)
	return result
}

// Stats returns a summary of graph size.
func (g *KnowledgeGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dangling := 0
	for _, rel := range g.relationships {
		if _, ok := g.nodes[rel.Target]; !ok {
			dangling++
		}
	}
	return map[string]int{
		"nodes":         len(g.nodes),
		"relationships": len(g.relationships),
		"classes":       len(g.byLabel[NodeClass]),
		"properties":    len(g.byLabel[NodeProperty]),
		"dangling":      dangling,
	}
}

func filterRels(rels map[string]*GraphRelationship, relType []RelType) []*GraphRelationship {
	if len(rels) == 0 {
		return nil
	}
	result := make([]*GraphRelationship, 0, len(rels))
	for _, rel := range rels {
		if len(relType) > 0 && relType[0] != "" && rel.Type != relType[0] {
			continue
		}
		result = append(result, rel)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func sortNodes(nodes []*GraphNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortRels(rels []*GraphRelationship) {
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
}
