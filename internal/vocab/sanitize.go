package vocab

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	// WikiRef matches a [[Term]] cross-reference inside a description.
	WikiRef = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer turns raw entity descriptions into the plain and rich variants.
type Sanitizer struct {
	conv *md.Converter
}

// NewSanitizer creates a sanitizer. Markdown escaping is disabled so that
// [[Term]] references and existing Markdown survive conversion.
func NewSanitizer() *Sanitizer {
	conv := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	conv.Use(plugin.GitHubFlavored())
	return &Sanitizer{conv: conv}
}

// Sanitize returns both description variants. It never fails: if the HTML
// cannot be converted the plain text stands in for the rich form.
func (s *Sanitizer) Sanitize(raw string) Description {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	plain := PlainText(raw)

	rich := strings.TrimSpace(raw)
	if htmlTag.MatchString(raw) {
		converted, err := s.conv.ConvertString(raw)
		if err != nil {
			converted = plain
		}
		rich = tidy(converted)
	}
	return Description{Plain: plain, Rich: rich}
}

// PlainText strips markup from a description: <br> becomes a newline,
// anchors keep their text, other tags are dropped, entities are decoded
// and [[Term]] references become Term.
func PlainText(raw string) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(WikiRef.ReplaceAllString(b.String(), "$1"))
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br":
				b.WriteByte('\n')
			case "li":
				b.WriteString("\n- ")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "div", "ul", "ol", "pre":
				b.WriteString("\n\n")
			}
		}
	}
}

// tidy trims trailing spaces on every line and collapses runs of blank
// lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FirstLine returns the first non-empty line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
