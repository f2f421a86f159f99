package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"bitbucket.org/creachadair/stringset"
	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/schemadoc-go/internal/graph"
)

// Key prefixes for FTS
const (
	prefixFTSToken = "fts:t:" // fts:t:token:nodeID -> frequency
)

// descriptionBudget bounds how much of a description is indexed.
const descriptionBudget = 500

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	letterDigit   = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetter   = regexp.MustCompile(`(\d)([a-zA-Z])`)
)

// FTSIndex is a persistent inverted index stored next to the graph.
type FTSIndex struct {
	db *badger.DB
}

// NewFTSIndex creates a new FTS index using the given BadgerDB instance.
func NewFTSIndex(db *badger.DB) *FTSIndex {
	return &FTSIndex{db: db}
}

// tokenize splits text into lower-case search tokens, sorted.
// Each word contributes itself plus its camelCase and letter/digit parts,
// so "CreativeWork" matches "creative", "work" and "creativework".
func tokenize(text string) []string {
	tokens := stringset.New()
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		tokens.Add(strings.ToLower(word))
		for _, part := range strings.Fields(camelBoundary.ReplaceAllString(word, "$1 $2")) {
			tokens.Add(strings.ToLower(part))
		}
		numSplit := letterDigit.ReplaceAllString(word, "$1 $2")
		numSplit = digitLetter.ReplaceAllString(numSplit, "$1 $2")
		for _, part := range strings.Fields(numSplit) {
			tokens.Add(strings.ToLower(part))
		}
	}
	return tokens.Elements()
}

// nodeTokens returns the token frequencies of a node's searchable text.
// Name tokens weigh double so name matches outrank description mentions.
func nodeTokens(node *graph.GraphNode) map[string]int {
	freq := make(map[string]int)
	for _, t := range tokenize(node.Name) {
		freq[t] += 2
	}
	desc := node.Description
	if r := []rune(desc); len(r) > descriptionBudget {
		desc = string(r[:descriptionBudget])
	}
	for _, t := range tokenize(desc) {
		freq[t]++
	}
	return freq
}

// IndexNodes writes the token entries of nodes into a write batch.
func (f *FTSIndex) IndexNodes(wb *badger.WriteBatch, nodes []*graph.GraphNode) error {
	for _, node := range nodes {
		for token, n := range nodeTokens(node) {
			key := fmt.Sprintf("%s%s:%s", prefixFTSToken, token, node.ID)
			if err := wb.Set([]byte(key), []byte(strconv.Itoa(n))); err != nil {
				return fmt.Errorf("setting token index: %w", err)
			}
		}
	}
	return nil
}

// Scores returns the summed token frequency of every node matching any
// query token.
func (f *FTSIndex) Scores(query string) (map[string]float64, error) {
	scores := make(map[string]float64)
	if f.db == nil {
		return scores, nil
	}

	err := f.db.View(func(txn *badger.Txn) error {
		for _, token := range tokenize(query) {
			prefix := prefixFTSToken + token + ":"
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				nodeID := strings.TrimPrefix(string(item.Key()), prefix)
				var freq int
				if err := item.Value(func(val []byte) error {
					var err error
					freq, err = strconv.Atoi(string(val))
					return err
				}); err != nil {
					it.Close()
					return fmt.Errorf("reading token %q: %w", token, err)
				}
				scores[nodeID] += float64(freq)
			}
			it.Close()
		}
		return nil
	})
	return scores, err
}

// IndexSize returns the number of indexed token entries.
func (f *FTSIndex) IndexSize() (int, error) {
	if f.db == nil {
		return 0, nil
	}
	count := 0
	err := f.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFTSToken)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
