// Package render turns vocabulary entities into format-neutral documents
// and serializes them through output profiles (MDX, Markdown, JSON, HTML).
package render

import (
	"time"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Ref identifies a link target. Targets depend only on kind and name, so
// links stay stable when the hierarchy is recomputed.
type Ref struct {
	Kind vocab.EntityKind
	Name string
}

// Link is one inline run of text. A nil Ref renders as plain text.
type Link struct {
	Text   string
	Ref    *Ref
	Strong bool

	// Extension marks links to extension-sourced entities.
	Extension bool
}

// BlockKind classifies body blocks.
type BlockKind string

const (
	BlockParagraph  BlockKind = "paragraph"
	BlockBreadcrumb BlockKind = "breadcrumb"
	BlockTable      BlockKind = "table"
	BlockList       BlockKind = "list"
	BlockCode       BlockKind = "code"
)

// Block is a unit of body content.
type Block struct {
	Kind BlockKind

	// Inline holds paragraph and breadcrumb content.
	Inline []Link

	// Markdown marks paragraphs whose plain runs are Markdown source.
	Markdown bool

	// Header and Rows hold table content; every cell is an inline run.
	Header []string
	Rows   [][][]Link

	// Items holds list entries. Overflow counts entries left out.
	Items    [][]Link
	Overflow int

	// Lang and Code hold code block content.
	Lang string
	Code string
}

// SectionKind names the role of a body section.
type SectionKind string

const (
	SectionBreadcrumb     SectionKind = "breadcrumb"
	SectionDescription    SectionKind = "description"
	SectionProperties     SectionKind = "properties"
	SectionInherited      SectionKind = "inherited_properties"
	SectionInheritedFrom  SectionKind = "inherited_from"
	SectionSubtypes       SectionKind = "subtypes"
	SectionUsage          SectionKind = "usage"
	SectionUsedOn         SectionKind = "used_on"
	SectionInheritedBy    SectionKind = "inherited_by"
	SectionExpectedTypes  SectionKind = "expected_types"
	SectionInverse        SectionKind = "inverse_property"
	SectionParentProperty SectionKind = "parent_property"
	SectionSupersededBy   SectionKind = "superseded_by"
)

// Section is an ordered part of a document body. An empty Heading means
// the section has no heading line.
type Section struct {
	Kind    SectionKind
	Level   int
	Heading []Link
	Blocks  []Block
}

// Field is one frontmatter entry. Value is a string or a []string.
type Field struct {
	Key   string
	Value any
}

// Document is the rendered, format-neutral form of one entity.
type Document struct {
	Kind   vocab.EntityKind
	Name   string
	Source vocab.Source

	// Summary is the plain-text description used by the search index.
	Summary string

	Frontmatter []Field
	Sections    []Section

	// Warnings are recoverable issues found while rendering.
	Warnings []vocab.Warning

	// GeneratedAt is the only volatile field. It is zero unless the
	// renderer was configured with a clock.
	GeneratedAt time.Time
}

// Field returns the value of a frontmatter key.
func (d *Document) Field(key string) (any, bool) {
	for _, f := range d.Frontmatter {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Section returns the first section of the given kind.
func (d *Document) Section(kind SectionKind) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].Kind == kind {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// Slug returns the output path of the document without extension.
func (d *Document) Slug() string {
	return Dir(d.Kind) + "/" + d.Name
}

// Dir returns the output directory for an entity kind.
func Dir(kind vocab.EntityKind) string {
	if kind == vocab.KindProperty {
		return "properties"
	}
	return "things"
}

// Href computes a relative link from a page of kind from to target, with
// the given file extension. Same-kind links stay in the directory.
func Href(from vocab.EntityKind, target Ref, ext string) string {
	if from == target.Kind {
		return target.Name + ext
	}
	return "../" + Dir(target.Kind) + "/" + target.Name + ext
}
