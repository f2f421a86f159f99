package vocab

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// fieldAliases maps a canonical field to the local key names accepted for
// it, in order of preference.
var fieldAliases = map[string][]string{
	"@type":          {"@type"},
	"@id":            {"@id"},
	"name":           {"name", "label"},
	"description":    {"description", "comment"},
	"subClassOf":     {"subClassOf"},
	"domainIncludes": {"domainIncludes", "from"},
	"rangeIncludes":  {"rangeIncludes", "to"},
	"subPropertyOf":  {"subPropertyOf"},
	"inverseOf":      {"inverseOf"},
	"supersededBy":   {"supersededBy"},
}

// Loader builds a Vocabulary from a parsed JSON-LD-like document.
type Loader struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, sanitizer: NewSanitizer()}
}

// Load builds a vocabulary from raw, which may be an object with an @graph
// list, a list of entities, or a single entity object. Malformed or
// unknown entities are skipped and reported as warnings; the returned
// error is non-nil only when raw has no recognisable shape at all.
func (l *Loader) Load(raw any, source string) (*Vocabulary, []Warning, error) {
	entities, err := entityList(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrParse, source, err)
	}

	v := NewVocabulary(source)
	var warnings []Warning
	warn := func(kind WarningKind, entity, msg string) {
		warnings = append(warnings, Warning{Kind: kind, Entity: entity, Message: msg})
		l.logger.Warn("Vocabulary entity issue",
			slog.String("source", source),
			slog.String("kind", string(kind)),
			slog.String("entity", entity),
			slog.String("message", msg))
	}

	for i, item := range entities {
		obj, ok := item.(map[string]any)
		if !ok {
			perr := &ParseError{Source: source, Index: i, Reason: fmt.Sprintf("entity is %T, not an object", item)}
			warn(WarnParse, "", perr.Error())
			continue
		}
		fields := canonicalFields(obj)

		name, _ := textValue(fields["name"])
		name = strings.TrimSpace(name)
		if name == "" {
			perr := &ParseError{Source: source, Index: i, Reason: "missing name"}
			warn(WarnParse, "", perr.Error())
			continue
		}

		id, _ := textValue(fields["@id"])
		rawDesc, _ := textValue(fields["description"])
		desc := l.sanitizer.Sanitize(rawDesc)

		switch kindOf(fields["@type"]) {
		case KindType:
			if _, dup := v.Types[name]; dup {
				warn(WarnDuplicate, name, "duplicate type in "+source+", last definition wins")
			}
			v.Types[name] = &Type{
				Name:        name,
				ID:          id,
				Description: desc,
				SubClassOf:  refList(fields["subClassOf"]),
			}
		case KindProperty:
			if _, dup := v.Properties[name]; dup {
				warn(WarnDuplicate, name, "duplicate property in "+source+", last definition wins")
			}
			v.Properties[name] = &Property{
				Name:           name,
				ID:             id,
				Description:    desc,
				DomainIncludes: refList(fields["domainIncludes"]),
				RangeIncludes:  refList(fields["rangeIncludes"]),
				SubPropertyOf:  firstRef(fields["subPropertyOf"]),
				InverseOf:      firstRef(fields["inverseOf"]),
				SupersededBy:   firstRef(fields["supersededBy"]),
			}
		default:
			perr := &ParseError{Source: source, Index: i, Name: name, Reason: "unknown entity kind"}
			warn(WarnParse, name, perr.Error())
		}
	}

	l.logger.Debug("Loaded vocabulary",
		slog.String("source", source),
		slog.Int("types", len(v.Types)),
		slog.Int("properties", len(v.Properties)),
		slog.Int("warnings", len(warnings)))
	return v, warnings, nil
}

func entityList(raw any) ([]any, error) {
	switch r := raw.(type) {
	case []any:
		return r, nil
	case map[string]any:
		if g, ok := r["@graph"]; ok {
			list, ok := g.([]any)
			if !ok {
				return nil, fmt.Errorf("@graph is %T, not a list", g)
			}
			return list, nil
		}
		return []any{r}, nil
	default:
		return nil, fmt.Errorf("expected object or list, got %T", raw)
	}
}

// canonicalFields re-keys an entity by canonical field name. Keys are
// compared by local name so prefixed and full-IRI keys are accepted.
func canonicalFields(obj map[string]any) map[string]any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byLocal := make(map[string]any, len(obj))
	for _, k := range keys {
		ln := localKey(k)
		if _, seen := byLocal[ln]; !seen {
			byLocal[ln] = obj[k]
		}
	}

	out := make(map[string]any, len(fieldAliases))
	for field, aliases := range fieldAliases {
		for _, a := range aliases {
			if v, ok := byLocal[a]; ok {
				out[field] = v
				break
			}
		}
	}
	return out
}

func localKey(k string) string {
	switch {
	case strings.HasPrefix(k, "@"):
		return k
	case strings.HasPrefix(k, "$"):
		return "@" + k[1:]
	}
	return LocalName(k)
}

// LocalName reduces a prefixed name or IRI to its local part:
// "schema:Thing" and "https://schema.org/Thing" both become "Thing".
func LocalName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "#/"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}

func kindOf(v any) EntityKind {
	var isProperty bool
	for _, t := range refList(v) {
		switch t {
		case "Class":
			return KindType
		case "Property":
			isProperty = true
		}
	}
	if isProperty {
		return KindProperty
	}
	return ""
}

// textValue extracts a scalar string from a plain value, an {"@value"} or
// {"@id"} object, or the first usable element of a list. Language-tagged
// lists prefer English.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	case map[string]any:
		if val, ok := t["@value"]; ok {
			return textValue(val)
		}
		if id, ok := t["@id"]; ok {
			return textValue(id)
		}
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok && m["@language"] == "en" {
				if s, ok := textValue(m); ok {
					return s, true
				}
			}
		}
		for _, item := range t {
			if s, ok := textValue(item); ok {
				return s, true
			}
		}
	}
	return "", false
}

// refList coerces a scalar or list of references into de-duplicated local
// names, preserving source order.
func refList(v any) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		default:
			s, ok := textValue(t)
			if !ok {
				return
			}
			name := LocalName(s)
			if name == "" || seen[name] {
				return
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	walk(v)
	return out
}

func firstRef(v any) string {
	if refs := refList(v); len(refs) > 0 {
		return refs[0]
	}
	return ""
}
