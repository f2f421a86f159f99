// Package hierarchy resolves the class hierarchy of a merged vocabulary.
//
// A Resolver is built once from a frozen ExtendedVocabulary. All tables
// (children, direct properties, primary ancestor chains) are precomputed in
// NewResolver, so every query method is a read-only lookup and safe to call
// from concurrent render workers.
package hierarchy

import (
	"fmt"
	"sort"

	"bitbucket.org/creachadair/stringset"

	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// InheritedGroup is the set of properties a type inherits from one ancestor.
type InheritedGroup struct {
	Type       string
	Properties []*vocab.Property
}

// PropertySet partitions the properties available on a type.
type PropertySet struct {
	// Direct holds properties whose domain includes the type, sorted by name.
	Direct []*vocab.Property

	// Inherited holds one group per ancestor that contributes properties,
	// nearest ancestor first. No property appears in more than one bucket.
	Inherited []InheritedGroup
}

// FarthestFirst returns the inherited groups ordered from the root down.
func (s PropertySet) FarthestFirst() []InheritedGroup {
	out := make([]InheritedGroup, len(s.Inherited))
	for i, g := range s.Inherited {
		out[len(s.Inherited)-1-i] = g
	}
	return out
}

// Names returns every property name in the set, sorted.
func (s PropertySet) Names() []string {
	names := stringset.New()
	for _, p := range s.Direct {
		names.Add(p.Name)
	}
	for _, g := range s.Inherited {
		for _, p := range g.Properties {
			names.Add(p.Name)
		}
	}
	return names.Elements()
}

type chain struct {
	ancestors []string
	err       error
}

// Resolver answers hierarchy queries over a frozen vocabulary.
type Resolver struct {
	vocab *vocab.ExtendedVocabulary
	graph *graph.KnowledgeGraph

	children map[string][]string
	direct   map[string][]*vocab.Property
	chains   map[string]chain
	roots    []string
}

// NewResolver builds the vocabulary graph and precomputes hierarchy tables.
func NewResolver(v *vocab.ExtendedVocabulary) *Resolver {
	g := graph.BuildFromVocabulary(v)
	r := &Resolver{
		vocab:    v,
		graph:    g,
		children: make(map[string][]string),
		direct:   make(map[string][]*vocab.Property),
		chains:   make(map[string]chain, v.TypeCount()),
	}

	for _, rel := range g.GetRelationshipsByType(graph.RelSubclassOf) {
		parent := graph.NameFromID(rel.Target)
		r.children[parent] = append(r.children[parent], graph.NameFromID(rel.Source))
	}
	for parent, kids := range r.children {
		sort.Strings(kids)
		r.children[parent] = kids
	}

	for _, rel := range g.GetRelationshipsByType(graph.RelDomainIncludes) {
		typeName := graph.NameFromID(rel.Target)
		if p, ok := v.Property(graph.NameFromID(rel.Source)); ok {
			r.direct[typeName] = append(r.direct[typeName], p)
		}
	}
	for typeName, props := range r.direct {
		sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
		r.direct[typeName] = props
	}

	for _, name := range v.TypeNames() {
		ancestors, err := r.walk(name)
		r.chains[name] = chain{ancestors: ancestors, err: err}

		t, _ := v.Type(name)
		isRoot := true
		for _, parent := range t.SubClassOf {
			if v.HasType(parent) {
				isRoot = false
				break
			}
		}
		if isRoot {
			r.roots = append(r.roots, name)
		}
	}
	return r
}

// walk follows subClassOf[0] from name. A parent missing from the
// vocabulary is recorded and ends the chain.
func (r *Resolver) walk(name string) ([]string, error) {
	seen := stringset.New(name)
	path := []string{name}
	var ancestors []string

	current, _ := r.vocab.Type(name)
	for len(current.SubClassOf) > 0 {
		parent := current.SubClassOf[0]
		path = append(path, parent)
		if seen.Contains(parent) {
			return nil, &vocab.CycleDetectedError{Type: name, Path: path}
		}
		seen.Add(parent)
		ancestors = append(ancestors, parent)

		next, ok := r.vocab.Type(parent)
		if !ok {
			break
		}
		current = next
	}
	return ancestors, nil
}

// Vocabulary returns the vocabulary the resolver was built from.
func (r *Resolver) Vocabulary() *vocab.ExtendedVocabulary { return r.vocab }

// Graph returns the vocabulary graph.
func (r *Resolver) Graph() *graph.KnowledgeGraph { return r.graph }

// Validate checks every primary ancestor chain and returns the first
// cycle found, in type-name order. A cycle is a fatal vocabulary error.
func (r *Resolver) Validate() error {
	for _, name := range r.vocab.TypeNames() {
		if err := r.chains[name].err; err != nil {
			return err
		}
	}
	return nil
}

// Ancestors returns the primary ancestor chain of a type, nearest parent
// first.
func (r *Resolver) Ancestors(typeName string) ([]string, error) {
	c, ok := r.chains[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: type %s", vocab.ErrNotFound, typeName)
	}
	if c.err != nil {
		return nil, c.err
	}
	out := make([]string, len(c.ancestors))
	copy(out, c.ancestors)
	return out, nil
}

// Breadcrumb returns the chain from the root down to and including the
// type itself.
func (r *Resolver) Breadcrumb(typeName string) ([]string, error) {
	ancestors, err := r.Ancestors(typeName)
	if err != nil {
		return nil, err
	}
	crumbs := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		crumbs = append(crumbs, ancestors[i])
	}
	return append(crumbs, typeName), nil
}

// DirectChildren returns the names of all types that list typeName in
// their subClassOf, sorted.
func (r *Resolver) DirectChildren(typeName string) []string {
	kids := r.children[typeName]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// DirectProperties returns the properties whose domain includes typeName,
// sorted by name.
func (r *Resolver) DirectProperties(typeName string) []*vocab.Property {
	props := r.direct[typeName]
	out := make([]*vocab.Property, len(props))
	copy(out, props)
	return out
}

// PropertiesForType partitions the properties available on a type into
// direct and inherited buckets. Inheritance follows the primary chain only
// and the nearest bucket wins when a property's domain lists several
// types on the chain.
func (r *Resolver) PropertiesForType(typeName string) (PropertySet, error) {
	ancestors, err := r.Ancestors(typeName)
	if err != nil {
		return PropertySet{}, err
	}

	seen := stringset.New()
	set := PropertySet{Direct: r.DirectProperties(typeName)}
	for _, p := range set.Direct {
		seen.Add(p.Name)
	}
	for _, a := range ancestors {
		var group []*vocab.Property
		for _, p := range r.direct[a] {
			if seen.Contains(p.Name) {
				continue
			}
			seen.Add(p.Name)
			group = append(group, p)
		}
		if len(group) > 0 {
			set.Inherited = append(set.Inherited, InheritedGroup{Type: a, Properties: group})
		}
	}
	return set, nil
}

// TypesForProperty returns every type on which the property is available,
// either directly or through its primary ancestor chain, sorted.
func (r *Resolver) TypesForProperty(propertyName string) ([]string, error) {
	p, ok := r.vocab.Property(propertyName)
	if !ok {
		return nil, fmt.Errorf("%w: property %s", vocab.ErrNotFound, propertyName)
	}
	domain := stringset.New(p.DomainIncludes...)

	var out []string
	for _, name := range r.vocab.TypeNames() {
		c := r.chains[name]
		if c.err != nil {
			return nil, c.err
		}
		if domain.Contains(name) || domain.ContainsAny(c.ancestors...) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Roots returns the types that have no known parent, sorted.
func (r *Resolver) Roots() []string {
	out := make([]string, len(r.roots))
	copy(out, r.roots)
	return out
}
