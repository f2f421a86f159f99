package vocab

import (
	"fmt"
	"sort"
)

// ConflictStrategy decides which entity survives when a name exists in
// both the base and the extension vocabulary.
type ConflictStrategy string

const (
	ExtensionWins   ConflictStrategy = "extension-wins"
	BaseWins        ConflictStrategy = "base-wins"
	ErrorOnConflict ConflictStrategy = "error-on-conflict"
)

// Valid reports whether s is a known strategy. The empty strategy is valid
// and means ExtensionWins.
func (s ConflictStrategy) Valid() bool {
	switch s {
	case "", ExtensionWins, BaseWins, ErrorOnConflict:
		return true
	}
	return false
}

// Default contexts used to compute $id and $context.
const (
	DefaultBaseContext      = "https://schema.org"
	DefaultExtensionContext = "https://schema.org.ai"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	BaseContext      string
	ExtensionContext string
	ConflictStrategy ConflictStrategy
}

// Merge unions base and ext by name, resolving collisions with the
// configured strategy and stamping every entity with its provenance.
// A nil ext merges the base vocabulary alone. Inputs are not mutated.
func Merge(base, ext *Vocabulary, opts MergeOptions) (*ExtendedVocabulary, error) {
	if base == nil {
		base = NewVocabulary("base")
	}
	if ext == nil {
		ext = NewVocabulary("extension")
	}
	strategy := opts.ConflictStrategy
	if strategy == "" {
		strategy = ExtensionWins
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}
	if opts.BaseContext == "" {
		opts.BaseContext = DefaultBaseContext
	}
	if opts.ExtensionContext == "" {
		opts.ExtensionContext = DefaultExtensionContext
	}

	if strategy == ErrorOnConflict {
		if cerr := findConflicts(base, ext); cerr != nil {
			return nil, cerr
		}
	}

	types := make(map[string]*Type, len(base.Types)+len(ext.Types))
	for name, t := range base.Types {
		c := t.Clone()
		c.Source = SourceBase
		types[name] = c
	}
	for name, t := range ext.Types {
		if _, exists := types[name]; exists && strategy == BaseWins {
			continue
		}
		c := t.Clone()
		c.Source = SourceExtension
		types[name] = c
	}

	props := make(map[string]*Property, len(base.Properties)+len(ext.Properties))
	for name, p := range base.Properties {
		c := p.Clone()
		c.Source = SourceBase
		props[name] = c
	}
	for name, p := range ext.Properties {
		if _, exists := props[name]; exists && strategy == BaseWins {
			continue
		}
		c := p.Clone()
		c.Source = SourceExtension
		props[name] = c
	}

	return newExtendedVocabulary(opts.BaseContext, opts.ExtensionContext, types, props), nil
}

func findConflicts(base, ext *Vocabulary) *ConflictError {
	var cerr ConflictError
	for name := range ext.Types {
		if _, ok := base.Types[name]; ok {
			cerr.Types = append(cerr.Types, name)
		}
	}
	for name := range ext.Properties {
		if _, ok := base.Properties[name]; ok {
			cerr.Properties = append(cerr.Properties, name)
		}
	}
	if len(cerr.Types) == 0 && len(cerr.Properties) == 0 {
		return nil
	}
	sort.Strings(cerr.Types)
	sort.Strings(cerr.Properties)
	return &cerr
}

// Combine folds several vocabularies loaded from the same logical source
// (for example a directory of extension files) into one. Later
// vocabularies override earlier ones by name, reported as duplicates.
func Combine(source string, parts ...*Vocabulary) (*Vocabulary, []Warning) {
	out := NewVocabulary(source)
	var warnings []Warning
	for _, part := range parts {
		if part == nil {
			continue
		}
		for _, name := range sortedKeys(part.Types) {
			if _, dup := out.Types[name]; dup {
				warnings = append(warnings, Warning{Kind: WarnDuplicate, Entity: name,
					Message: fmt.Sprintf("type redefined in %s, last definition wins", part.Source)})
			}
			out.Types[name] = part.Types[name].Clone()
		}
		for _, name := range sortedKeys(part.Properties) {
			if _, dup := out.Properties[name]; dup {
				warnings = append(warnings, Warning{Kind: WarnDuplicate, Entity: name,
					Message: fmt.Sprintf("property redefined in %s, last definition wins", part.Source)})
			}
			out.Properties[name] = part.Properties[name].Clone()
		}
	}
	return out, warnings
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
