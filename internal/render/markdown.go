package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExtensionMarker is appended to Markdown links that point at
// extension-sourced entities.
const ExtensionMarker = " 🆕"

// MarkdownProfile writes the document body as plain Markdown.
type MarkdownProfile struct{}

func (*MarkdownProfile) Name() string { return "md" }
func (*MarkdownProfile) Ext() string  { return ".md" }

func (p *MarkdownProfile) Encode(w io.Writer, page *Page) error {
	_, err := io.WriteString(w, markdownBody(page.Doc, p.Ext()))
	return err
}

// MDXProfile writes YAML frontmatter followed by the Markdown body.
type MDXProfile struct{}

func (*MDXProfile) Name() string { return "mdx" }
func (*MDXProfile) Ext() string  { return ".mdx" }

func (p *MDXProfile) Encode(w io.Writer, page *Page) error {
	fm, err := Frontmatter(page.Doc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(markdownBody(page.Doc, p.Ext()))
	_, err = w.Write(buf.Bytes())
	return err
}

// Frontmatter encodes the document's fields as a YAML mapping, keeping
// field order. The description is always double-quoted.
func Frontmatter(doc *Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, val *yaml.Node) {
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
	}
	for _, f := range doc.Frontmatter {
		switch v := f.Value.(type) {
		case string:
			n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
			if f.Key == "description" {
				n.Style = yaml.DoubleQuotedStyle
			}
			add(f.Key, n)
		case []string:
			seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, item := range v {
				seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
			}
			add(f.Key, seq)
		default:
			return nil, fmt.Errorf("frontmatter field %s: unsupported value %T", f.Key, f.Value)
		}
	}
	if !doc.GeneratedAt.IsZero() {
		add("generatedAt", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: doc.GeneratedAt.Format(time.RFC3339)})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}

func markdownBody(doc *Document, ext string) string {
	var b strings.Builder
	for _, s := range doc.Sections {
		if len(s.Heading) > 0 {
			b.WriteString(strings.Repeat("#", max(s.Level, 1)))
			b.WriteByte(' ')
			b.WriteString(mdInline(s.Heading, doc, ext, false))
			b.WriteString("\n\n")
		}
		for _, blk := range s.Blocks {
			writeMarkdownBlock(&b, blk, doc, ext)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeMarkdownBlock(b *strings.Builder, blk Block, doc *Document, ext string) {
	switch blk.Kind {
	case BlockParagraph:
		b.WriteString(mdInline(blk.Inline, doc, ext, false))
	case BlockBreadcrumb:
		parts := make([]string, 0, len(blk.Inline))
		for _, l := range blk.Inline {
			parts = append(parts, mdLink(l, doc, ext, false))
		}
		b.WriteString(strings.Join(parts, " → "))
	case BlockTable:
		seps := make([]string, len(blk.Header))
		for i, h := range blk.Header {
			seps[i] = strings.Repeat("-", len(h)+2)
		}
		lines := []string{
			"| " + strings.Join(blk.Header, " | ") + " |",
			"|" + strings.Join(seps, "|") + "|",
		}
		for _, row := range blk.Rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = mdInline(cell, doc, ext, true)
			}
			lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		}
		b.WriteString(strings.Join(lines, "\n"))
	case BlockList:
		lines := make([]string, 0, len(blk.Items)+1)
		for _, item := range blk.Items {
			lines = append(lines, "- "+mdInline(item, doc, ext, false))
		}
		if blk.Overflow > 0 {
			lines = append(lines, fmt.Sprintf("- ... and %d more", blk.Overflow))
		}
		b.WriteString(strings.Join(lines, "\n"))
	case BlockCode:
		b.WriteString("```" + blk.Lang + "\n" + blk.Code + "\n```")
	}
	b.WriteString("\n\n")
}

func mdInline(links []Link, doc *Document, ext string, inTable bool) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString(mdLink(l, doc, ext, inTable))
	}
	return b.String()
}

func mdLink(l Link, doc *Document, ext string, inTable bool) string {
	txt := l.Text
	if inTable {
		txt = strings.ReplaceAll(txt, "|", `\|`)
		txt = strings.ReplaceAll(txt, "\n", " ")
	}
	switch {
	case l.Ref != nil:
		txt = "[" + txt + "](" + Href(doc.Kind, *l.Ref, ext) + ")"
	case l.Strong:
		txt = "**" + txt + "**"
	}
	if l.Extension {
		txt += ExtensionMarker
	}
	return txt
}
