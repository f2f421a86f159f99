package render

import (
	"fmt"
	"io"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// JSONProfile writes the structured form of a document: frontmatter
// fields in order, then the section tree.
type JSONProfile struct{}

func (*JSONProfile) Name() string { return "json" }
func (*JSONProfile) Ext() string  { return ".json" }

type jsonLink struct {
	Text      string `json:"text"`
	Href      string `json:"href,omitempty"`
	Strong    bool   `json:"strong,omitzero"`
	Extension bool   `json:"extension,omitzero"`
}

type jsonBlock struct {
	Kind     BlockKind      `json:"kind"`
	Inline   []jsonLink     `json:"inline,omitempty"`
	Header   []string       `json:"header,omitempty"`
	Rows     [][][]jsonLink `json:"rows,omitempty"`
	Items    [][]jsonLink   `json:"items,omitempty"`
	Overflow int            `json:"overflow,omitzero"`
	Lang     string         `json:"lang,omitempty"`
	Code     string         `json:"code,omitempty"`
}

type jsonSection struct {
	Kind    SectionKind `json:"kind"`
	Level   int         `json:"level,omitzero"`
	Heading []jsonLink  `json:"heading,omitempty"`
	Blocks  []jsonBlock `json:"blocks,omitempty"`
}

func (p *JSONProfile) Encode(w io.Writer, page *Page) error {
	doc := page.Doc
	enc := jsontext.NewEncoder(w, jsontext.WithIndent("  "))

	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, f := range doc.Frontmatter {
		if err := writeMember(enc, f.Key, f.Value); err != nil {
			return fmt.Errorf("field %s: %w", f.Key, err)
		}
	}
	if !doc.GeneratedAt.IsZero() {
		if err := writeMember(enc, "generatedAt", doc.GeneratedAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}

	sections := make([]jsonSection, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		js := jsonSection{Kind: s.Kind, Level: s.Level, Heading: p.links(doc, s.Heading)}
		for _, b := range s.Blocks {
			jb := jsonBlock{
				Kind:     b.Kind,
				Inline:   p.links(doc, b.Inline),
				Header:   b.Header,
				Overflow: b.Overflow,
				Lang:     b.Lang,
				Code:     b.Code,
			}
			for _, row := range b.Rows {
				cells := make([][]jsonLink, 0, len(row))
				for _, cell := range row {
					cells = append(cells, p.links(doc, cell))
				}
				jb.Rows = append(jb.Rows, cells)
			}
			for _, item := range b.Items {
				jb.Items = append(jb.Items, p.links(doc, item))
			}
			js.Blocks = append(js.Blocks, jb)
		}
		sections = append(sections, js)
	}
	if err := writeMember(enc, "sections", sections); err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}

func (p *JSONProfile) links(doc *Document, links []Link) []jsonLink {
	if len(links) == 0 {
		return nil
	}
	out := make([]jsonLink, 0, len(links))
	for _, l := range links {
		jl := jsonLink{Text: l.Text, Strong: l.Strong, Extension: l.Extension}
		if l.Ref != nil {
			jl.Href = Href(doc.Kind, *l.Ref, p.Ext())
		}
		out = append(out, jl)
	}
	return out
}

func writeMember(enc *jsontext.Encoder, key string, value any) error {
	if err := enc.WriteToken(jsontext.String(key)); err != nil {
		return err
	}
	return json.MarshalEncode(enc, value, json.Deterministic(true))
}

// EncodeJSON writes v as indented, deterministic JSON followed by a newline.
func EncodeJSON(w io.Writer, v any) error {
	enc := jsontext.NewEncoder(w, jsontext.WithIndent("  "))
	return json.MarshalEncode(enc, v, json.Deterministic(true))
}
