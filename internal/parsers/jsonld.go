package parsers

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// JSONLDParser decodes JSON and JSON-LD documents. Duplicate object keys
// are rejected; the loader never has to guess which one was meant.
type JSONLDParser struct{}

// Format returns the format this parser handles.
func (p *JSONLDParser) Format() string {
	return "jsonld"
}

// Parse decodes a JSON-LD document.
func (p *JSONLDParser) Parse(path string, content []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(content, &doc, jsontext.AllowDuplicateNames(false)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vocab.ErrParse, path, err)
	}
	return doc, nil
}
