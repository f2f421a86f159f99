package render

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Benny93/schemadoc-go/internal/hierarchy"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

const (
	DefaultTruncate         = 100
	DefaultInheritedByLimit = 50
	ellipsis                = "…"
)

var propertyTableHeader = []string{"Property", "Expected Type", "Description"}

// Options configures a Renderer.
type Options struct {
	// Truncate caps table description previews, in characters.
	Truncate int

	// InheritedByLimit caps the "Inherited By" list of property documents.
	InheritedByLimit int

	// Now stamps GeneratedAt. Nil leaves it zero so output is stable.
	Now func() time.Time
}

// Renderer builds documents from a resolved vocabulary. It only reads the
// vocabulary and resolver, so one Renderer may be shared by concurrent
// workers.
type Renderer struct {
	vocab    *vocab.ExtendedVocabulary
	resolver *hierarchy.Resolver
	opts     Options
}

// NewRenderer creates a renderer over the resolver's vocabulary.
func NewRenderer(r *hierarchy.Resolver, opts Options) *Renderer {
	if opts.Truncate <= 0 {
		opts.Truncate = DefaultTruncate
	}
	if opts.InheritedByLimit <= 0 {
		opts.InheritedByLimit = DefaultInheritedByLimit
	}
	return &Renderer{vocab: r.Vocabulary(), resolver: r, opts: opts}
}

// docBuilder accumulates warnings for one document, reporting each
// dangling name once.
type docBuilder struct {
	doc      *Document
	dangling map[string]bool
}

func (b *docBuilder) danglingRef(name, context string) {
	if b.dangling[name] {
		return
	}
	b.dangling[name] = true
	b.doc.Warnings = append(b.doc.Warnings, vocab.Warning{
		Kind:    vocab.WarnDanglingReference,
		Entity:  b.doc.Name,
		Message: fmt.Sprintf("%s references unknown name %q", context, name),
	})
}

func (r *Renderer) newBuilder(kind vocab.EntityKind, name string, source vocab.Source, summary string) *docBuilder {
	doc := &Document{Kind: kind, Name: name, Source: source, Summary: summary}
	if r.opts.Now != nil {
		doc.GeneratedAt = r.opts.Now().UTC()
	}
	return &docBuilder{doc: doc, dangling: make(map[string]bool)}
}

// RenderType builds the document for one type.
func (r *Renderer) RenderType(typeName string) (*Document, error) {
	t, ok := r.vocab.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: type %s", vocab.ErrNotFound, typeName)
	}
	ancestors, err := r.resolver.Ancestors(typeName)
	if err != nil {
		return nil, err
	}
	props, err := r.resolver.PropertiesForType(typeName)
	if err != nil {
		return nil, err
	}
	children := r.resolver.DirectChildren(typeName)

	b := r.newBuilder(vocab.KindType, t.Name, t.Source, t.Description.Plain)
	doc := b.doc

	ctx := r.vocab.ContextFor(t.Source)
	doc.Frontmatter = []Field{
		{"$id", r.vocab.EntityID(t.Name, t.Source)},
		{"$context", ctx},
		{"$type", string(vocab.KindType)},
		{"$source", string(t.Source)},
		{"name", t.Name},
		{"description", t.Description.Plain},
	}
	if len(t.SubClassOf) > 0 {
		doc.Frontmatter = append(doc.Frontmatter, Field{"subClassOf", clone(t.SubClassOf)})
	}
	if len(ancestors) > 0 {
		doc.Frontmatter = append(doc.Frontmatter, Field{"parents", ancestors})
	}
	if len(children) > 0 {
		doc.Frontmatter = append(doc.Frontmatter, Field{"children", children})
	}

	for _, parent := range t.SubClassOf {
		if !r.vocab.HasType(parent) {
			b.danglingRef(parent, "subClassOf")
		}
	}

	if len(ancestors) > 0 {
		crumbs := make([]Link, 0, len(ancestors)+1)
		for i := len(ancestors) - 1; i >= 0; i-- {
			crumbs = append(crumbs, r.typeLink(ancestors[i], false))
		}
		crumbs = append(crumbs, Link{Text: t.Name, Strong: true})
		doc.Sections = append(doc.Sections, Section{
			Kind:   SectionBreadcrumb,
			Blocks: []Block{{Kind: BlockBreadcrumb, Inline: crumbs}},
		})
	}

	doc.Sections = append(doc.Sections, r.descriptionSection(b, t.Name, t.Description))

	if len(props.Direct) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionProperties,
			Level:   2,
			Heading: text("Properties"),
			Blocks:  []Block{r.propertyTable(b, props.Direct)},
		})
	}

	if len(props.Inherited) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionInherited,
			Level:   2,
			Heading: text("Inherited Properties"),
		})
		for _, group := range props.FarthestFirst() {
			doc.Sections = append(doc.Sections, Section{
				Kind:    SectionInheritedFrom,
				Level:   3,
				Heading: []Link{{Text: "From "}, r.typeLink(group.Type, false)},
				Blocks:  []Block{r.propertyTable(b, group.Properties)},
			})
		}
	}

	if len(children) > 0 {
		items := make([][]Link, 0, len(children))
		for _, child := range children {
			items = append(items, []Link{r.typeLink(child, true)})
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionSubtypes,
			Level:   2,
			Heading: text("Subtypes"),
			Blocks:  []Block{{Kind: BlockList, Items: items}},
		})
	}

	if t.Source == vocab.SourceExtension {
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionUsage,
			Level:   2,
			Heading: text("Usage"),
			Blocks:  []Block{{Kind: BlockCode, Lang: "typescript", Code: usageExample(t.Name)}},
		})
	}
	return doc, nil
}

// RenderProperty builds the document for one property.
func (r *Renderer) RenderProperty(propertyName string) (*Document, error) {
	p, ok := r.vocab.Property(propertyName)
	if !ok {
		return nil, fmt.Errorf("%w: property %s", vocab.ErrNotFound, propertyName)
	}
	allTypes, err := r.resolver.TypesForProperty(propertyName)
	if err != nil {
		return nil, err
	}

	b := r.newBuilder(vocab.KindProperty, p.Name, p.Source, p.Description.Plain)
	doc := b.doc

	doc.Frontmatter = []Field{
		{"$id", r.vocab.EntityID(p.Name, p.Source)},
		{"$context", r.vocab.ContextFor(p.Source)},
		{"$type", string(vocab.KindProperty)},
		{"$source", string(p.Source)},
		{"name", p.Name},
		{"description", p.Description.Plain},
	}
	if len(p.DomainIncludes) > 0 {
		doc.Frontmatter = append(doc.Frontmatter, Field{"domainIncludes", clone(p.DomainIncludes)})
	}
	if len(p.RangeIncludes) > 0 {
		doc.Frontmatter = append(doc.Frontmatter, Field{"rangeIncludes", clone(p.RangeIncludes)})
	}
	for _, f := range []Field{{"subPropertyOf", p.SubPropertyOf}, {"inverseOf", p.InverseOf}, {"supersededBy", p.SupersededBy}} {
		if f.Value != "" {
			doc.Frontmatter = append(doc.Frontmatter, f)
		}
	}

	doc.Sections = append(doc.Sections, r.descriptionSection(b, p.Name, p.Description))

	if len(p.DomainIncludes) > 0 {
		domain := sorted(p.DomainIncludes)
		items := make([][]Link, 0, len(domain))
		for _, name := range domain {
			if !r.vocab.HasType(name) {
				b.danglingRef(name, "domainIncludes")
			}
			items = append(items, []Link{r.typeLink(name, true)})
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionUsedOn,
			Level:   2,
			Heading: text("Used On"),
			Blocks: []Block{
				{Kind: BlockParagraph, Inline: text("This property is used on the following types:")},
				{Kind: BlockList, Items: items},
			},
		})
	}

	inDomain := make(map[string]bool, len(p.DomainIncludes))
	for _, d := range p.DomainIncludes {
		inDomain[d] = true
	}
	var inheritedBy []string
	for _, name := range allTypes {
		if !inDomain[name] {
			inheritedBy = append(inheritedBy, name)
		}
	}
	if len(inheritedBy) > 0 {
		shown := inheritedBy
		if len(shown) > r.opts.InheritedByLimit {
			shown = shown[:r.opts.InheritedByLimit]
		}
		items := make([][]Link, 0, len(shown))
		for _, name := range shown {
			items = append(items, []Link{r.typeLink(name, true)})
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionInheritedBy,
			Level:   2,
			Heading: text("Inherited By"),
			Blocks: []Block{
				{Kind: BlockParagraph, Inline: text("This property is also available on these types through inheritance:")},
				{Kind: BlockList, Items: items, Overflow: len(inheritedBy) - len(shown)},
			},
		})
	}

	if len(p.RangeIncludes) > 0 {
		rng := sorted(p.RangeIncludes)
		items := make([][]Link, 0, len(rng))
		for _, name := range rng {
			if !r.vocab.HasType(name) {
				b.danglingRef(name, "rangeIncludes")
			}
			items = append(items, []Link{r.typeLink(name, true)})
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    SectionExpectedTypes,
			Level:   2,
			Heading: text("Expected Types"),
			Blocks: []Block{
				{Kind: BlockParagraph, Inline: text("Values are expected to be one of:")},
				{Kind: BlockList, Items: items},
			},
		})
	}

	related := []struct {
		kind    SectionKind
		heading string
		field   string
		name    string
	}{
		{SectionInverse, "Inverse Property", "inverseOf", p.InverseOf},
		{SectionParentProperty, "Parent Property", "subPropertyOf", p.SubPropertyOf},
		{SectionSupersededBy, "Superseded By", "supersededBy", p.SupersededBy},
	}
	for _, rel := range related {
		if rel.name == "" {
			continue
		}
		if !r.vocab.HasProperty(rel.name) {
			b.danglingRef(rel.name, rel.field)
		}
		doc.Sections = append(doc.Sections, Section{
			Kind:    rel.kind,
			Level:   2,
			Heading: text(rel.heading),
			Blocks:  []Block{{Kind: BlockList, Items: [][]Link{{r.propertyLink(rel.name, false)}}}},
		})
	}
	return doc, nil
}

func (r *Renderer) descriptionSection(b *docBuilder, name string, desc vocab.Description) Section {
	s := Section{
		Kind:    SectionDescription,
		Level:   1,
		Heading: text(name),
	}
	if desc.Rich != "" {
		s.Blocks = []Block{{Kind: BlockParagraph, Inline: r.expandRefs(b, desc.Rich), Markdown: true}}
	}
	return s
}

// expandRefs splits rich text on [[Term]] references, linking the terms
// that resolve and reporting the ones that do not.
func (r *Renderer) expandRefs(b *docBuilder, rich string) []Link {
	var out []Link
	last := 0
	for _, m := range vocab.WikiRef.FindAllStringSubmatchIndex(rich, -1) {
		if m[0] > last {
			out = append(out, Link{Text: rich[last:m[0]]})
		}
		term := rich[m[2]:m[3]]
		switch {
		case r.vocab.HasType(term):
			out = append(out, r.typeLink(term, false))
		case r.vocab.HasProperty(term):
			out = append(out, r.propertyLink(term, false))
		default:
			b.danglingRef(term, "description")
			out = append(out, Link{Text: term})
		}
		last = m[1]
	}
	if last < len(rich) {
		out = append(out, Link{Text: rich[last:]})
	}
	return out
}

// propertyTable lists props with their range types. Unknown range types
// stay unlinked and are reported on the document being built.
func (r *Renderer) propertyTable(b *docBuilder, props []*vocab.Property) Block {
	rows := make([][][]Link, 0, len(props))
	for _, p := range props {
		name := []Link{r.propertyLink(p.Name, true)}

		var rng []Link
		for i, t := range p.RangeIncludes {
			if i > 0 {
				rng = append(rng, Link{Text: ", "})
			}
			if !r.vocab.HasType(t) {
				b.danglingRef(t, p.Name+".rangeIncludes")
			}
			rng = append(rng, r.typeLink(t, false))
		}
		if len(rng) == 0 {
			rng = text("Any")
		}

		desc := text(Truncate(vocab.FirstLine(p.Description.Plain), r.opts.Truncate))
		rows = append(rows, [][]Link{name, rng, desc})
	}
	return Block{Kind: BlockTable, Header: propertyTableHeader, Rows: rows}
}

// typeLink links to a type, or returns plain text for an unknown name.
func (r *Renderer) typeLink(name string, marker bool) Link {
	t, ok := r.vocab.Type(name)
	if !ok {
		return Link{Text: name}
	}
	return Link{
		Text:      name,
		Ref:       &Ref{Kind: vocab.KindType, Name: name},
		Extension: marker && t.Source == vocab.SourceExtension,
	}
}

func (r *Renderer) propertyLink(name string, marker bool) Link {
	p, ok := r.vocab.Property(name)
	if !ok {
		return Link{Text: name}
	}
	return Link{
		Text:      name,
		Ref:       &Ref{Kind: vocab.KindProperty, Name: name},
		Extension: marker && p.Source == vocab.SourceExtension,
	}
}

// Truncate caps s at limit characters, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}

func usageExample(name string) string {
	return fmt.Sprintf(`import { $ } from 'sdk.do'
import type { %[1]s } from 'schema.org.ai'

const item: %[1]s = {
  $type: '%[1]s',
  name: 'Example %[1]s'
}

await $.%[1]s.create(item)`, name)
}

func text(s string) []Link { return []Link{{Text: s}} }

func clone(s []string) []string { return append([]string(nil), s...) }

func sorted(s []string) []string {
	out := clone(s)
	sort.Strings(out)
	return out
}
