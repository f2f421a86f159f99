package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Benny93/schemadoc-go/internal/hierarchy"
)

// Page is what a profile serializes: one document plus the navigation
// tree expanded for it.
type Page struct {
	Doc *Document
	Nav []*hierarchy.NavNode
}

// Profile serializes pages into one output format.
type Profile interface {
	// Name is the format key used in configuration ("mdx", "md", ...).
	Name() string

	// Ext is the file extension including the dot.
	Ext() string

	Encode(w io.Writer, page *Page) error
}

// NeedsNav reports whether the profile uses Page.Nav.
func NeedsNav(p Profile) bool {
	_, ok := p.(*HTMLProfile)
	return ok
}

var profiles = map[string]func() Profile{
	"mdx":  func() Profile { return &MDXProfile{} },
	"md":   func() Profile { return &MarkdownProfile{} },
	"json": func() Profile { return &JSONProfile{} },
	"html": func() Profile { return NewHTMLProfile() },
}

// ProfileNames returns the known format keys.
func ProfileNames() []string {
	return []string{"mdx", "md", "json", "html"}
}

// ProfilesFor resolves format keys into profiles, in the given order.
func ProfilesFor(names []string) ([]Profile, error) {
	out := make([]Profile, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		ctor, ok := profiles[name]
		if !ok {
			return nil, fmt.Errorf("unknown output format %q (known: %s)", name, strings.Join(ProfileNames(), ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, ctor())
	}
	return out, nil
}
