package corpus

import (
	"cmp"
	"slices"

	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// SearchEntry is one record of the flat search index.
type SearchEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
}

// BuildSearchIndex derives the search index from the written documents,
// sorted by path.
func BuildSearchIndex(docs []*render.Document) []SearchEntry {
	entries := make([]SearchEntry, 0, len(docs))
	for _, d := range docs {
		id, _ := d.Field("$id")
		idStr, _ := id.(string)
		entries = append(entries, SearchEntry{
			ID:          idStr,
			Name:        d.Name,
			Description: d.Summary,
			Path:        d.Slug(),
			Kind:        string(d.Kind),
			Source:      string(d.Source),
		})
	}
	slices.SortFunc(entries, func(a, b SearchEntry) int { return cmp.Compare(a.Path, b.Path) })
	return entries
}

func indexEntries(docs []*render.Document) []render.IndexEntry {
	var out []render.IndexEntry
	for _, d := range docs {
		if d.Kind != vocab.KindType {
			continue
		}
		out = append(out, render.IndexEntry{
			Name:        d.Name,
			Href:        d.Slug() + ".html",
			Description: d.Summary,
			Extension:   d.Source == vocab.SourceExtension,
		})
	}
	slices.SortFunc(out, func(a, b render.IndexEntry) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
