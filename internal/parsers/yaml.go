package parsers

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// YAMLParser decodes YAML extension files. Hand-written extensions are
// often YAML, with the same keys as their JSON-LD counterparts.
type YAMLParser struct{}

// Format returns the format this parser handles.
func (p *YAMLParser) Format() string {
	return "yaml"
}

// Parse decodes a YAML document.
func (p *YAMLParser) Parse(path string, content []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vocab.ErrParse, path, err)
	}
	return normalize(doc), nil
}

// normalize converts YAML mappings to map[string]any so YAML and JSON
// sources look the same to the loader.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}
