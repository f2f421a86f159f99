// Package rdf exports the merged vocabulary as an RDF dataset.
package rdf

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Vocabulary IRIs
const (
	RDFType        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFProperty    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#Property"
	RDFSClass      = "http://www.w3.org/2000/01/rdf-schema#Class"
	RDFSLabel      = "http://www.w3.org/2000/01/rdf-schema#label"
	RDFSComment    = "http://www.w3.org/2000/01/rdf-schema#comment"
	RDFSSubClassOf = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	RDFSSubPropOf  = "http://www.w3.org/2000/01/rdf-schema#subPropertyOf"
	XSDString      = "http://www.w3.org/2001/XMLSchema#string"

	SchemaNamespace    = "https://schema.org/"
	SchemaDomain       = SchemaNamespace + "domainIncludes"
	SchemaRange        = SchemaNamespace + "rangeIncludes"
	SchemaInverseOf    = SchemaNamespace + "inverseOf"
	SchemaSupersededBy = SchemaNamespace + "supersededBy"
)

// Dataset converts the vocabulary to an RDF dataset in the default graph.
// Types become rdfs:Class resources and properties rdf:Property resources;
// references to unknown names resolve into the base namespace.
func Dataset(v *vocab.ExtendedVocabulary) *ld.RDFDataset {
	dataset := ld.NewRDFDataset()
	var quads []*ld.Quad
	add := func(subject, predicate string, object ld.Node) {
		quads = append(quads, ld.NewQuad(ld.NewIRI(subject), ld.NewIRI(predicate), object, "@default"))
	}

	for _, name := range v.TypeNames() {
		t, _ := v.Type(name)
		id := v.EntityID(name, t.Source)
		add(id, RDFType, ld.NewIRI(RDFSClass))
		add(id, RDFSLabel, literal(name))
		if t.Description.Plain != "" {
			add(id, RDFSComment, literal(t.Description.Plain))
		}
		for _, parent := range t.SubClassOf {
			add(id, RDFSSubClassOf, ld.NewIRI(refIRI(v, parent)))
		}
	}

	for _, name := range v.PropertyNames() {
		p, _ := v.Property(name)
		id := v.EntityID(name, p.Source)
		add(id, RDFType, ld.NewIRI(RDFProperty))
		add(id, RDFSLabel, literal(name))
		if p.Description.Plain != "" {
			add(id, RDFSComment, literal(p.Description.Plain))
		}
		for _, d := range p.DomainIncludes {
			add(id, SchemaDomain, ld.NewIRI(refIRI(v, d)))
		}
		for _, r := range p.RangeIncludes {
			add(id, SchemaRange, ld.NewIRI(refIRI(v, r)))
		}
		if p.SubPropertyOf != "" {
			add(id, RDFSSubPropOf, ld.NewIRI(refIRI(v, p.SubPropertyOf)))
		}
		if p.InverseOf != "" {
			add(id, SchemaInverseOf, ld.NewIRI(refIRI(v, p.InverseOf)))
		}
		if p.SupersededBy != "" {
			add(id, SchemaSupersededBy, ld.NewIRI(refIRI(v, p.SupersededBy)))
		}
	}

	dataset.Graphs["@default"] = quads
	return dataset
}

// WriteNQuads serializes the vocabulary as N-Quads, one statement per
// line in sorted order.
func WriteNQuads(w io.Writer, v *vocab.ExtendedVocabulary) error {
	out, err := (&ld.NQuadRDFSerializer{}).Serialize(Dataset(v))
	if err != nil {
		return fmt.Errorf("serializing N-Quads: %w", err)
	}
	text, ok := out.(string)
	if !ok {
		return fmt.Errorf("serializing N-Quads: unexpected %T", out)
	}

	lines := strings.SplitAfter(text, "\n")
	lines = slices.DeleteFunc(lines, func(l string) bool { return l == "" })
	slices.Sort(lines)
	lines = slices.Compact(lines)
	for _, l := range lines {
		if _, err := io.WriteString(w, l); err != nil {
			return err
		}
	}
	return nil
}

func literal(s string) ld.Node {
	return ld.NewLiteral(s, XSDString, "")
}

func refIRI(v *vocab.ExtendedVocabulary, name string) string {
	if t, ok := v.Type(name); ok {
		return v.EntityID(name, t.Source)
	}
	if p, ok := v.Property(name); ok {
		return v.EntityID(name, p.Source)
	}
	return v.EntityID(name, vocab.SourceBase)
}
