package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/Benny93/schemadoc-go/internal/hierarchy"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

const pageTemplate = `{{define "nav"}}<ul>{{range .}}<li{{if .Current}} class="current"{{end}}><a href="{{.Href}}">{{.Name}}</a>{{if .Children}}{{template "nav" .Children}}{{end}}</li>{{end}}</ul>{{end}}
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="alternate" type="application/json" href="{{.JSONHref}}">
<link rel="alternate" type="text/markdown" href="{{.MarkdownHref}}">
</head>
<body>
<nav class="sidebar">
{{template "nav" .Nav}}
</nav>
<main>
{{range .Body}}{{.}}
{{end}}<p class="alternates"><a href="{{.JSONHref}}">JSON</a> · <a href="{{.MarkdownHref}}">Markdown</a></p>
{{if .GeneratedAt}}<footer>Generated {{.GeneratedAt}}</footer>
{{end}}</main>
</body>
</html>
{{end}}
{{define "index"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<ul class="index">
{{range .Entries}}<li><a href="{{.Href}}"{{if .Extension}} class="ext"{{end}}>{{.Name}}</a>{{if .Description}} <span>{{.Description}}</span>{{end}}</li>
{{end}}</ul>
</main>
</body>
</html>
{{end}}`

// HTMLProfile writes a standalone page with a sidebar expanded along the
// page's breadcrumb and links to its JSON and Markdown siblings.
type HTMLProfile struct {
	tmpl *template.Template
}

// NewHTMLProfile parses the page templates.
func NewHTMLProfile() *HTMLProfile {
	return &HTMLProfile{tmpl: template.Must(template.New("html").Parse(pageTemplate))}
}

func (*HTMLProfile) Name() string { return "html" }
func (*HTMLProfile) Ext() string  { return ".html" }

type htmlNav struct {
	Name     string
	Href     string
	Current  bool
	Children []htmlNav
}

type htmlPage struct {
	Title        string
	JSONHref     string
	MarkdownHref string
	Nav          []htmlNav
	Body         []template.HTML
	GeneratedAt  string
}

func (p *HTMLProfile) Encode(w io.Writer, page *Page) error {
	doc := page.Doc
	view := htmlPage{
		Title:        doc.Name,
		JSONHref:     doc.Name + ".json",
		MarkdownHref: doc.Name + ".md",
		Nav:          p.nav(doc.Kind, page.Nav),
	}
	if !doc.GeneratedAt.IsZero() {
		view.GeneratedAt = doc.GeneratedAt.Format(time.RFC3339)
	}
	for _, s := range doc.Sections {
		if len(s.Heading) > 0 {
			level := min(max(s.Level, 1), 6)
			view.Body = append(view.Body, template.HTML(fmt.Sprintf("<h%d>%s</h%d>", level, p.inline(doc, s.Heading), level)))
		}
		for _, b := range s.Blocks {
			view.Body = append(view.Body, p.block(doc, b))
		}
	}
	return p.tmpl.ExecuteTemplate(w, "page", view)
}

// IndexEntry is one line of the corpus index page.
type IndexEntry struct {
	Name        string
	Href        string
	Description string
	Extension   bool
}

// EncodeIndex writes the page listing every type.
func (p *HTMLProfile) EncodeIndex(w io.Writer, title string, entries []IndexEntry) error {
	return p.tmpl.ExecuteTemplate(w, "index", struct {
		Title   string
		Entries []IndexEntry
	}{title, entries})
}

func (p *HTMLProfile) nav(from vocab.EntityKind, nodes []*hierarchy.NavNode) []htmlNav {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]htmlNav, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlNav{
			Name:     n.Name,
			Href:     Href(from, Ref{Kind: vocab.KindType, Name: n.Name}, p.Ext()),
			Current:  n.Current,
			Children: p.nav(from, n.Children),
		})
	}
	return out
}

func (p *HTMLProfile) block(doc *Document, b Block) template.HTML {
	var sb strings.Builder
	switch b.Kind {
	case BlockParagraph:
		if b.Markdown {
			sb.WriteString(p.markdown(doc, b.Inline))
			break
		}
		sb.WriteString("<p>" + p.inline(doc, b.Inline) + "</p>")
	case BlockBreadcrumb:
		parts := make([]string, 0, len(b.Inline))
		for _, l := range b.Inline {
			parts = append(parts, p.link(doc, l))
		}
		sb.WriteString(`<nav class="breadcrumb">` + strings.Join(parts, " → ") + "</nav>")
	case BlockTable:
		sb.WriteString("<table>\n<thead><tr>")
		for _, h := range b.Header {
			sb.WriteString("<th>" + template.HTMLEscapeString(h) + "</th>")
		}
		sb.WriteString("</tr></thead>\n<tbody>\n")
		for _, row := range b.Rows {
			sb.WriteString("<tr>")
			for _, cell := range row {
				sb.WriteString("<td>" + p.inline(doc, cell) + "</td>")
			}
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</tbody>\n</table>")
	case BlockList:
		sb.WriteString("<ul>\n")
		for _, item := range b.Items {
			sb.WriteString("<li>" + p.inline(doc, item) + "</li>\n")
		}
		if b.Overflow > 0 {
			fmt.Fprintf(&sb, "<li>... and %d more</li>\n", b.Overflow)
		}
		sb.WriteString("</ul>")
	case BlockCode:
		sb.WriteString(`<pre><code class="language-` + template.HTMLEscapeString(b.Lang) + `">` +
			template.HTMLEscapeString(b.Code) + "</code></pre>")
	}
	return template.HTML(sb.String())
}

func (p *HTMLProfile) inline(doc *Document, links []Link) string {
	var sb strings.Builder
	for _, l := range links {
		sb.WriteString(p.link(doc, l))
	}
	return sb.String()
}

// markdown converts a run of Markdown text to HTML. Entity links are
// passed through as inline HTML; any other tag in the text is escaped.
func (p *HTMLProfile) markdown(doc *Document, links []Link) string {
	var src strings.Builder
	for _, l := range links {
		if l.Ref != nil {
			src.WriteString(p.link(doc, l))
			continue
		}
		src.WriteString(strings.ReplaceAll(l.Text, "<", "&lt;"))
	}
	out := blackfriday.Run([]byte(src.String()),
		blackfriday.WithExtensions(blackfriday.NoIntraEmphasis|blackfriday.Strikethrough|blackfriday.Autolink|blackfriday.HardLineBreak),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.Safelink | blackfriday.NofollowLinks,
		})))
	return strings.TrimSpace(string(out))
}

func (p *HTMLProfile) link(doc *Document, l Link) string {
	txt := strings.ReplaceAll(template.HTMLEscapeString(l.Text), "\n", "<br>")
	switch {
	case l.Ref != nil:
		class := ""
		if l.Extension {
			class = ` class="ext"`
		}
		return `<a href="` + template.HTMLEscapeString(Href(doc.Kind, *l.Ref, p.Ext())) + `"` + class + ">" + txt + "</a>"
	case l.Strong:
		return "<strong>" + txt + "</strong>"
	}
	return txt
}
