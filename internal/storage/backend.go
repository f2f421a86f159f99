// Package storage provides the vocabulary index used by query, show and
// the MCP server.
//
// It defines the Backend interface that all storage implementations must
// satisfy, along with common types used across backends.
package storage

import (
	"cmp"
	"context"
	"slices"

	"github.com/Benny93/schemadoc-go/internal/graph"
)

// Direction selects which side of a relationship GetNeighbors follows.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// Document is the stored, rendered form of one entity.
type Document struct {
	// NodeID is the ID of the graph node the document describes.
	NodeID string `json:"nodeId"`

	// Path is the corpus slug (e.g. "things/Person").
	Path string `json:"path"`

	// Markdown is the rendered body.
	Markdown string `json:"markdown"`
}

// SearchResult represents a search result from the storage backend.
type SearchResult struct {
	// NodeID is the ID of the matching node.
	NodeID string

	// Score is the relevance score (higher is better).
	Score float64

	// Name is the entity name.
	Name string

	// Label is the node label.
	Label string

	// Source is the provenance tag.
	Source string

	// Path is the corpus slug of the entity's document, if any.
	Path string

	// Snippet is an excerpt of the description.
	Snippet string
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the entire store with the graph and documents.
	BulkLoad(ctx context.Context, g *graph.KnowledgeGraph, docs []Document) error

	// GetNode returns a single node by ID, or nil if not found.
	GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error)

	// GetNodesByLabel returns all nodes with the given label, sorted by ID.
	GetNodesByLabel(ctx context.Context, label graph.NodeLabel) ([]*graph.GraphNode, error)

	// GetNeighbors returns the nodes at the other end of relType edges,
	// ordered by edge position. Dangling edges are skipped. An empty
	// relType follows every edge type.
	GetNeighbors(ctx context.Context, nodeID string, relType graph.RelType, dir Direction) ([]*graph.GraphNode, error)

	// GetDocument returns the stored document for a node, or nil.
	GetDocument(ctx context.Context, nodeID string) (*Document, error)

	// FTSSearch performs a token search over names and descriptions.
	FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error)

	NodeCount() int
	RelationshipCount() int
}

const snippetLen = 200

func snippet(s string) string {
	r := []rune(s)
	if len(r) > snippetLen {
		return string(r[:snippetLen])
	}
	return s
}

// rankResults orders results by score, then ID, and applies the limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.NodeID, b.NodeID)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sortByPosition(rels []*graph.GraphRelationship) {
	slices.SortFunc(rels, func(a, b *graph.GraphRelationship) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func otherEnd(rel *graph.GraphRelationship, dir Direction) string {
	if dir == Incoming {
		return rel.Source
	}
	return rel.Target
}
