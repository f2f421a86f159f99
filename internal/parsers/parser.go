// Package parsers decodes vocabulary source files into generic values the
// vocabulary loader understands (objects, lists, strings, numbers).
package parsers

import (
	"path/filepath"
	"strings"
)

// Parser defines the interface for source-format decoders.
type Parser interface {
	// Parse decodes content read from path. Objects decode to
	// map[string]any and arrays to []any.
	Parse(path string, content []byte) (any, error)

	// Format returns the format this parser handles.
	Format() string
}

var byExtension = map[string]Parser{
	".jsonld": &JSONLDParser{},
	".json":   &JSONLDParser{},
	".yaml":   &YAMLParser{},
	".yml":    &YAMLParser{},
}

// ForPath returns the parser for a file based on its extension.
func ForPath(path string) (Parser, bool) {
	p, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// Extensions lists the file extensions a parser exists for.
func Extensions() []string {
	return []string{".json", ".jsonld", ".yaml", ".yml"}
}
