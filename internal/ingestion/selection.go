package ingestion

import (
	"fmt"

	"bitbucket.org/creachadair/stringset"

	"github.com/Benny93/schemadoc-go/internal/config"
	"github.com/Benny93/schemadoc-go/internal/hierarchy"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// CoreTypes is the built-in selection used when no other mode is
// configured.
var CoreTypes = []string{
	"Thing", "Action", "CreativeWork", "Event", "Intangible", "Organization",
	"Person", "Place", "Product", "Article", "BlogPosting", "WebPage",
	"WebSite", "WebAPI", "ImageObject", "VideoObject", "AudioObject", "Offer",
	"Review", "Rating", "PostalAddress", "ContactPoint", "LocalBusiness",
	"Restaurant", "Hotel", "Book", "Movie", "MusicRecording", "Recipe",
	"HowTo", "FAQPage", "ItemList", "BreadcrumbList", "SearchAction",
	"ReadAction", "WatchAction", "SoftwareApplication",
}

// Selection is the set of entities that get documents.
type Selection struct {
	Types      []string
	Properties []string

	// Issues lists selected names missing from the vocabulary.
	Issues []vocab.Warning
}

// Select applies the selection mode. Properties are those available on a
// selected type, directly or by inheritance, plus every extension
// property. Both lists are sorted.
func Select(sel config.SelectionConfig, r *hierarchy.Resolver) (*Selection, error) {
	v := r.Vocabulary()
	extTypes, extProps := v.FilterBySource(vocab.SourceExtension)

	types := stringset.New()
	var requested []string
	switch sel.Mode {
	case config.SelectAll:
		types.Add(v.TypeNames()...)
	case config.SelectExtensions:
		for _, t := range extTypes {
			types.Add(t.Name)
		}
	case config.SelectTypes:
		matched, missing := sel.MatchTypes(v.TypeNames())
		types.Add(matched...)
		requested = missing
	case config.SelectDefault, "":
		requested = CoreTypes
		for _, t := range extTypes {
			types.Add(t.Name)
		}
	default:
		return nil, fmt.Errorf("unknown selection mode %q", sel.Mode)
	}

	out := &Selection{}
	for _, name := range requested {
		if v.HasType(name) {
			types.Add(name)
			continue
		}
		out.Issues = append(out.Issues, vocab.Warning{
			Kind:    vocab.WarnMissingEntity,
			Entity:  name,
			Message: "selected type is not in the vocabulary",
		})
	}

	props := stringset.New()
	for name := range types {
		set, err := r.PropertiesForType(name)
		if err != nil {
			return nil, err
		}
		props.Add(set.Names()...)
	}
	for _, p := range extProps {
		props.Add(p.Name)
	}

	out.Types = types.Elements()
	out.Properties = props.Elements()
	return out, nil
}
