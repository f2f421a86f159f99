package storage

import (
	"context"
	"sync"

	"github.com/Benny93/schemadoc-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of Backend, used by watch
// mode between runs and by tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	graph   *graph.KnowledgeGraph
	docs    map[string]*Document
	index   map[string]map[string]int // token -> nodeID -> frequency
	indexed bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		graph: graph.NewKnowledgeGraph(),
		docs:  make(map[string]*Document),
		index: make(map[string]map[string]int),
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph = graph.NewKnowledgeGraph()
	m.docs = make(map[string]*Document)
	m.index = make(map[string]map[string]int)
	m.indexed = false
	return nil
}

// IsIndexed reports whether the backend is ready.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}

// BulkLoad implements Backend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, g *graph.KnowledgeGraph, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph = g
	m.docs = make(map[string]*Document, len(docs))
	for i := range docs {
		d := docs[i]
		m.docs[d.NodeID] = &d
	}
	m.index = make(map[string]map[string]int)
	for _, node := range g.Nodes() {
		for token, n := range nodeTokens(node) {
			if m.index[token] == nil {
				m.index[token] = make(map[string]int)
			}
			m.index[token][node.ID] = n
		}
	}
	m.indexed = true
	return ctx.Err()
}

// GetNode implements Backend.
func (m *MemoryBackend) GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.GetNode(nodeID), nil
}

// GetNodesByLabel implements Backend.
func (m *MemoryBackend) GetNodesByLabel(ctx context.Context, label graph.NodeLabel) ([]*graph.GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.GetNodesByLabel(label), nil
}

// GetNeighbors implements Backend.
func (m *MemoryBackend) GetNeighbors(ctx context.Context, nodeID string, relType graph.RelType, dir Direction) ([]*graph.GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var types []graph.RelType
	if relType != "" {
		types = append(types, relType)
	}
	var rels []*graph.GraphRelationship
	if dir == Incoming {
		rels = m.graph.GetIncoming(nodeID, types...)
	} else {
		rels = m.graph.GetOutgoing(nodeID, types...)
	}

	var nodes []*graph.GraphNode
	for _, rel := range rels {
		if n := m.graph.GetNode(otherEnd(rel, dir)); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// GetDocument implements Backend.
func (m *MemoryBackend) GetDocument(ctx context.Context, nodeID string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[nodeID], nil
}

// FTSSearch implements Backend.
func (m *MemoryBackend) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[string]float64)
	for _, token := range tokenize(query) {
		for nodeID, n := range m.index[token] {
			scores[nodeID] += float64(n)
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for nodeID, score := range scores {
		node := m.graph.GetNode(nodeID)
		if node == nil {
			continue
		}
		r := SearchResult{
			NodeID:  nodeID,
			Score:   score,
			Name:    node.Name,
			Label:   string(node.Label),
			Source:  node.Source,
			Snippet: snippet(node.Description),
		}
		if d := m.docs[nodeID]; d != nil {
			r.Path = d.Path
		}
		results = append(results, r)
	}
	return rankResults(results, limit), nil
}

// NodeCount implements Backend.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.NodeCount()
}

// RelationshipCount implements Backend.
func (m *MemoryBackend) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.RelationshipCount()
}
