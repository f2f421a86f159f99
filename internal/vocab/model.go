// Package vocab provides the vocabulary data model for schemadoc.
//
// It defines the type (class) and property entities read from a base
// vocabulary and its extensions, the Loader that builds them from parsed
// JSON-LD-like documents, and the Merger that combines both sources into
// one ExtendedVocabulary tagged with provenance.
package vocab

import (
	"slices"
	"sort"
)

// EntityKind is the kind of a vocabulary entity.
type EntityKind string

const (
	KindType     EntityKind = "Class"
	KindProperty EntityKind = "Property"
)

// Source is the provenance tag of an entity.
type Source string

const (
	SourceBase      Source = "base"
	SourceExtension Source = "extension"
)

// Description holds both sanitized forms of an entity description.
type Description struct {
	// Plain is the description with all markup removed.
	Plain string

	// Rich is the description as Markdown. Wiki-style [[Term]] references
	// are preserved so the renderer can turn them into cross-links.
	Rich string
}

// Type is a class entity.
type Type struct {
	// Name is the unique identifier (e.g. "Person").
	Name string

	// ID is the fully-qualified URI from the source document, if any.
	ID string

	// Description is the sanitized description.
	Description Description

	// SubClassOf lists parent type names in source order. The first entry
	// is the primary parent.
	SubClassOf []string

	// Source is the provenance tag.
	Source Source
}

// Property is a relation entity.
type Property struct {
	// Name is the unique identifier (e.g. "email").
	Name string

	// ID is the fully-qualified URI from the source document, if any.
	ID string

	// Description is the sanitized description.
	Description Description

	// DomainIncludes lists the types the property may be used on.
	DomainIncludes []string

	// RangeIncludes lists the types or literal kinds of the property value.
	RangeIncludes []string

	SubPropertyOf string
	InverseOf     string
	SupersededBy  string

	// Source is the provenance tag.
	Source Source
}

// Clone returns a deep copy of the type.
func (t *Type) Clone() *Type {
	c := *t
	c.SubClassOf = slices.Clone(t.SubClassOf)
	return &c
}

// Clone returns a deep copy of the property.
func (p *Property) Clone() *Property {
	c := *p
	c.DomainIncludes = slices.Clone(p.DomainIncludes)
	c.RangeIncludes = slices.Clone(p.RangeIncludes)
	return &c
}

// Vocabulary is the in-memory form of a single source document.
type Vocabulary struct {
	// Source names where the vocabulary came from (file path or label).
	Source string

	Types      map[string]*Type
	Properties map[string]*Property
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary(source string) *Vocabulary {
	return &Vocabulary{
		Source:     source,
		Types:      make(map[string]*Type),
		Properties: make(map[string]*Property),
	}
}

// Len returns the total number of entities.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Types) + len(v.Properties)
}

// ExtendedVocabulary is the merged, provenance-tagged vocabulary.
//
// It is treated as frozen once Merge returns: nothing downstream of the
// merger mutates it, which is what allows rendering to run in parallel
// without locks.
type ExtendedVocabulary struct {
	BaseContext      string
	ExtensionContext string

	types      map[string]*Type
	properties map[string]*Property

	typeNames     []string
	propertyNames []string
}

func newExtendedVocabulary(baseCtx, extCtx string, types map[string]*Type, props map[string]*Property) *ExtendedVocabulary {
	ev := &ExtendedVocabulary{
		BaseContext:      baseCtx,
		ExtensionContext: extCtx,
		types:            types,
		properties:       props,
		typeNames:        make([]string, 0, len(types)),
		propertyNames:    make([]string, 0, len(props)),
	}
	for name := range types {
		ev.typeNames = append(ev.typeNames, name)
	}
	for name := range props {
		ev.propertyNames = append(ev.propertyNames, name)
	}
	sort.Strings(ev.typeNames)
	sort.Strings(ev.propertyNames)
	return ev
}

// Type returns the named type.
func (v *ExtendedVocabulary) Type(name string) (*Type, bool) {
	t, ok := v.types[name]
	return t, ok
}

// Property returns the named property.
func (v *ExtendedVocabulary) Property(name string) (*Property, bool) {
	p, ok := v.properties[name]
	return p, ok
}

// HasType reports whether a type with the given name exists.
func (v *ExtendedVocabulary) HasType(name string) bool {
	_, ok := v.types[name]
	return ok
}

// HasProperty reports whether a property with the given name exists.
func (v *ExtendedVocabulary) HasProperty(name string) bool {
	_, ok := v.properties[name]
	return ok
}

// TypeNames returns all type names sorted.
func (v *ExtendedVocabulary) TypeNames() []string {
	return slices.Clone(v.typeNames)
}

// PropertyNames returns all property names sorted.
func (v *ExtendedVocabulary) PropertyNames() []string {
	return slices.Clone(v.propertyNames)
}

// TypeCount returns the number of types.
func (v *ExtendedVocabulary) TypeCount() int { return len(v.typeNames) }

// PropertyCount returns the number of properties.
func (v *ExtendedVocabulary) PropertyCount() int { return len(v.propertyNames) }

// ContextFor returns the namespace used for entities of the given provenance.
func (v *ExtendedVocabulary) ContextFor(source Source) string {
	if source == SourceExtension {
		return v.ExtensionContext
	}
	return v.BaseContext
}

// EntityID computes the $id of an entity from its provenance.
func (v *ExtendedVocabulary) EntityID(name string, source Source) string {
	return v.ContextFor(source) + "/" + name
}

// FilterBySource returns the types and properties with the given
// provenance, each sorted by name.
func (v *ExtendedVocabulary) FilterBySource(source Source) ([]*Type, []*Property) {
	var types []*Type
	for _, name := range v.typeNames {
		if t := v.types[name]; t.Source == source {
			types = append(types, t)
		}
	}
	var props []*Property
	for _, name := range v.propertyNames {
		if p := v.properties[name]; p.Source == source {
			props = append(props, p)
		}
	}
	return types, props
}
