package hierarchy

import "bitbucket.org/creachadair/stringset"

// DefaultRoot is the designated root type of a schema.org-style vocabulary.
const DefaultRoot = "Thing"

// NavNode is one entry of the sidebar navigation tree.
type NavNode struct {
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Children []*NavNode `json:"children,omitempty"`

	// HasChildren is set when the node has subtypes, whether or not they
	// are expanded.
	HasChildren bool `json:"hasChildren,omitempty"`
	Expanded    bool `json:"expanded,omitempty"`
	Current     bool `json:"current,omitempty"`
}

// Slug returns the output path of a type page relative to the corpus root.
func Slug(typeName string) string {
	return "things/" + typeName
}

// NavTree returns the navigation forest with only the branches along the
// breadcrumb of current expanded. An empty or unknown current collapses
// every root.
func (r *Resolver) NavTree(current string) []*NavNode {
	path := stringset.New()
	if crumbs, err := r.Breadcrumb(current); err == nil {
		path = stringset.New(crumbs...)
	}
	expand := func(name string) bool { return path.Contains(name) }

	out := make([]*NavNode, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, r.navNode(root, current, expand, stringset.New()))
	}
	return out
}

// FullNavTree returns the navigation forest with every branch expanded.
// A type with several parents appears under each of them.
func (r *Resolver) FullNavTree() []*NavNode {
	all := func(string) bool { return true }
	out := make([]*NavNode, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, r.navNode(root, "", all, stringset.New()))
	}
	return out
}

// navNode builds the subtree at name. onStack guards against secondary
// parents forming a loop the primary-chain check does not see.
func (r *Resolver) navNode(name, current string, expand func(string) bool, onStack stringset.Set) *NavNode {
	kids := r.children[name]
	n := &NavNode{
		Name:        name,
		Slug:        Slug(name),
		HasChildren: len(kids) > 0,
		Current:     name == current,
	}
	if len(kids) == 0 || !expand(name) || onStack.Contains(name) {
		return n
	}

	onStack.Add(name)
	n.Expanded = true
	n.Children = make([]*NavNode, 0, len(kids))
	for _, kid := range kids {
		if onStack.Contains(kid) {
			continue
		}
		n.Children = append(n.Children, r.navNode(kid, current, expand, onStack))
	}
	onStack.Discard(name)
	return n
}

// Meta is the sidebar ordering consumed by the documentation site.
type Meta struct {
	Title string   `json:"title"`
	Pages []string `json:"pages"`
}

// SidebarMeta orders the type pages: the index, the root and its direct
// children, then every other type sorted by name.
func (r *Resolver) SidebarMeta() Meta {
	root := DefaultRoot
	if !r.vocab.HasType(root) && len(r.roots) > 0 {
		root = r.roots[0]
	}

	pages := []string{"index", "---"}
	listed := stringset.New()
	if r.vocab.HasType(root) {
		pages = append(pages, root)
		listed.Add(root)
		for _, kid := range r.children[root] {
			if r.vocab.HasType(kid) && !listed.Contains(kid) {
				pages = append(pages, kid)
				listed.Add(kid)
			}
		}
	}

	rest := stringset.New(r.vocab.TypeNames()...).Diff(listed).Elements()
	if len(rest) > 0 {
		pages = append(pages, "---")
		pages = append(pages, rest...)
	}
	return Meta{Title: "Types", Pages: pages}
}
