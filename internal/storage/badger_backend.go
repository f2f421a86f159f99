package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"

	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Key prefixes for different data types
const (
	prefixNode     = "n:"     // node data
	prefixRel      = "r:"     // relationship data
	prefixIncoming = "i:in:"  // incoming relationships
	prefixOutgoing = "i:out:" // outgoing relationships
	prefixDocument = "d:"     // rendered documents
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db                *badger.DB
	fts               *FTSIndex
	readOnly          bool
	mu                sync.RWMutex
	nodeCount         int
	relationshipCount int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("%w: opening badger DB: %v", vocab.ErrStorageUnavailable, err)
	}
	b.db = db
	b.readOnly = readOnly
	b.fts = NewFTSIndex(db)

	b.nodeCount, err = b.countPrefix(prefixNode)
	if err != nil {
		return err
	}
	b.relationshipCount, err = b.countPrefix(prefixRel)
	return err
}

func (b *BadgerBackend) countPrefix(prefix string) (int, error) {
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s keys: %w", prefix, err)
	}
	return count, nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.fts = nil
	return err
}

func (b *BadgerBackend) ready() error {
	if b.db == nil {
		return fmt.Errorf("%w: backend not initialized", vocab.ErrStorageUnavailable)
	}
	return nil
}

// BulkLoad replaces the entire store with the contents of the graph and
// the rendered documents.
func (b *BadgerBackend) BulkLoad(ctx context.Context, g *graph.KnowledgeGraph, docs []Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(); err != nil {
		return err
	}
	if b.readOnly {
		return fmt.Errorf("bulk load: backend is read-only")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	nodes := g.Nodes()
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := setJSON(wb, b.nodeKey(node.ID), node); err != nil {
			return fmt.Errorf("setting node: %w", err)
		}
	}

	rels := g.Relationships()
	for _, rel := range rels {
		if err := setJSON(wb, b.relKey(rel.ID), rel); err != nil {
			return fmt.Errorf("setting relationship: %w", err)
		}
		if err := b.indexRelationship(wb, rel); err != nil {
			return err
		}
	}

	for i := range docs {
		if err := setJSON(wb, b.docKey(docs[i].NodeID), &docs[i]); err != nil {
			return fmt.Errorf("setting document: %w", err)
		}
	}

	if err := b.fts.IndexNodes(wb, nodes); err != nil {
		return err
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing index: %w", err)
	}
	b.nodeCount = len(nodes)
	b.relationshipCount = len(rels)
	return nil
}

// indexRelationship creates adjacency list indexes for a relationship.
func (b *BadgerBackend) indexRelationship(wb *badger.WriteBatch, rel *graph.GraphRelationship) error {
	// Outgoing: source -> rel_type -> rel.ID (unique key per relationship)
	outKey := fmt.Sprintf("%s%s:%s:%s", prefixOutgoing, rel.Source, rel.Type, rel.ID)
	if err := wb.Set([]byte(outKey), []byte(rel.ID)); err != nil {
		return fmt.Errorf("setting outgoing index: %w", err)
	}

	// Incoming: target -> rel_type -> rel.ID (unique key per relationship)
	inKey := fmt.Sprintf("%s%s:%s:%s", prefixIncoming, rel.Target, rel.Type, rel.ID)
	if err := wb.Set([]byte(inKey), []byte(rel.ID)); err != nil {
		return fmt.Errorf("setting incoming index: %w", err)
	}

	return nil
}

// GetNode returns a single node by ID, or nil if not found.
func (b *BadgerBackend) GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	var node *graph.GraphNode
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getJSON[graph.GraphNode](txn, b.nodeKey(nodeID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting node: %w", err)
	}
	return node, nil
}

// GetNodesByLabel returns all nodes with the given label. Node IDs start
// with their label, so this is a prefix scan in key order.
func (b *BadgerBackend) GetNodesByLabel(ctx context.Context, label graph.NodeLabel) ([]*graph.GraphNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	var nodes []*graph.GraphNode
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.nodeKey(graph.GenerateID(label, ""))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var node graph.GraphNode
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			}); err != nil {
				return fmt.Errorf("unmarshaling node: %w", err)
			}
			nodes = append(nodes, &node)
		}
		return nil
	})
	return nodes, err
}

// GetNeighbors follows relType edges from nodeID in the given direction.
func (b *BadgerBackend) GetNeighbors(ctx context.Context, nodeID string, relType graph.RelType, dir Direction) ([]*graph.GraphNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	prefix := prefixOutgoing + nodeID + ":"
	if dir == Incoming {
		prefix = prefixIncoming + nodeID + ":"
	}
	if relType != "" {
		prefix += string(relType) + ":"
	}

	var neighbors []*graph.GraphNode
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var rels []*graph.GraphRelationship
		for it.Rewind(); it.Valid(); it.Next() {
			relID, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading rel ID: %w", err)
			}
			rel, err := getJSON[graph.GraphRelationship](txn, b.relKey(string(relID)))
			if err != nil {
				return err
			}
			if rel != nil {
				rels = append(rels, rel)
			}
		}
		sortByPosition(rels)

		for _, rel := range rels {
			node, err := getJSON[graph.GraphNode](txn, b.nodeKey(otherEnd(rel, dir)))
			if err != nil {
				return err
			}
			if node != nil {
				neighbors = append(neighbors, node)
			}
		}
		return nil
	})
	return neighbors, err
}

// GetDocument returns the stored document for a node, or nil.
func (b *BadgerBackend) GetDocument(ctx context.Context, nodeID string) (*Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	var doc *Document
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = getJSON[Document](txn, b.docKey(nodeID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// FTSSearch performs full-text search using the persistent FTS index.
func (b *BadgerBackend) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	scores, err := b.fts.Scores(query)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	results := make([]SearchResult, 0, len(scores))
	err = b.db.View(func(txn *badger.Txn) error {
		for nodeID, score := range scores {
			node, err := getJSON[graph.GraphNode](txn, b.nodeKey(nodeID))
			if err != nil {
				return err
			}
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
			doc, err := getJSON[Document](txn, b.docKey(nodeID))
			if err != nil {
				return err
			}
			if doc != nil {
				r.Path = doc.Path
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rankResults(results, limit), nil
}

// nodeKey returns the BadgerDB key for a node.
func (b *BadgerBackend) nodeKey(nodeID string) []byte {
	return []byte(prefixNode + nodeID)
}

// relKey returns the BadgerDB key for a relationship.
func (b *BadgerBackend) relKey(relID string) []byte {
	return []byte(prefixRel + relID)
}

// docKey returns the BadgerDB key for a node's document.
func (b *BadgerBackend) docKey(nodeID string) []byte {
	return []byte(prefixDocument + nodeID)
}

// NodeCount returns the node count.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// RelationshipCount returns the relationship count.
func (b *BadgerBackend) RelationshipCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.relationshipCount
}

func setJSON(wb *badger.WriteBatch, key []byte, v any) error {
	data, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return err
	}
	return wb.Set(key, data)
}

// getJSON decodes the value at key, returning nil when the key is absent.
func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, nil
}
