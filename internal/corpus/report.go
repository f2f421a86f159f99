package corpus

import (
	"slices"
	"time"

	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Report summarises one generation run. It is written to report.json and
// returned to the caller.
type Report struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Warnings   int `json:"warnings"`
	Types      int `json:"types"`
	Properties int `json:"properties"`
	Files      int `json:"files"`

	Issues []vocab.Warning `json:"issues"`

	GeneratedAt string `json:"generatedAt,omitempty"`

	// Written holds the documents that made it into the corpus.
	Written []*render.Document `json:"-"`
}

// NewReport counts documents and classifies issues. Identical issues are
// reported once. Issues that caused an entity to be skipped count as
// skipped, the rest as warnings.
func NewReport(docs []*render.Document, issues []vocab.Warning, generatedAt time.Time) *Report {
	r := &Report{Processed: len(docs), Issues: slices.Clone(issues)}
	if r.Issues == nil {
		r.Issues = []vocab.Warning{}
	}
	slices.SortStableFunc(r.Issues, vocab.CompareWarnings)
	r.Issues = slices.Compact(r.Issues)

	for _, d := range docs {
		if d.Kind == vocab.KindProperty {
			r.Properties++
		} else {
			r.Types++
		}
	}
	for _, w := range r.Issues {
		if w.Skips() {
			r.Skipped++
		} else {
			r.Warnings++
		}
	}
	if !generatedAt.IsZero() {
		r.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// IssuesOf returns the issues of the given kinds.
func (r *Report) IssuesOf(kinds ...vocab.WarningKind) []vocab.Warning {
	var out []vocab.Warning
	for _, w := range r.Issues {
		if slices.Contains(kinds, w.Kind) {
			out = append(out, w)
		}
	}
	return out
}
