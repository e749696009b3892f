// Package template substitutes {{dot.path}} tokens in workflow-authored
// strings using the trigger context (job, client, company, invoice data).
//
// Unresolved tokens render as an empty string, never as an error and never
// as the literal token; automation volumes are write-heavy so templates are
// parsed once and the compiled form is cached per template string.
package template

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"

	cacheExpiration = 30 * time.Minute
	cacheCleanup    = 10 * time.Minute
)

// compiled templates keyed by raw template string.
var templates = gocache.New(cacheExpiration, cacheCleanup)

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentToken
)

type segment struct {
	kind    segmentKind
	literal string
	path    []string
	raw     string
}

// Template is a parsed template ready to render against any context.
type Template struct {
	raw      string
	segments []segment
}

// Parse scans a template string into literal and token segments. A "{{"
// without a matching "}}" is kept as literal text.
func Parse(raw string) *Template {
	tmpl := &Template{raw: raw}
	rest := raw

	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			break
		}

		end := strings.Index(rest[start:], closeDelim)
		if end < 0 {
			break
		}

		if start > 0 {
			tmpl.segments = append(tmpl.segments, segment{kind: segmentLiteral, literal: rest[:start]})
		}

		token := rest[start+len(openDelim) : start+end]
		path := strings.Split(strings.TrimSpace(token), ".")
		tmpl.segments = append(tmpl.segments, segment{
			kind: segmentToken,
			path: path,
			raw:  rest[start : start+end+len(closeDelim)],
		})

		rest = rest[start+end+len(closeDelim):]
	}

	if rest != "" {
		tmpl.segments = append(tmpl.segments, segment{kind: segmentLiteral, literal: rest})
	}

	return tmpl
}

// Compile returns the parsed form of raw, reusing a cached parse when one
// exists.
func Compile(raw string) *Template {
	if cached, found := templates.Get(raw); found {
		if tmpl, ok := cached.(*Template); ok {
			return tmpl
		}
	}

	tmpl := Parse(raw)
	templates.SetDefault(raw, tmpl)

	return tmpl
}

// Render resolves every token against data and concatenates the result.
func (t *Template) Render(data map[string]any) string {
	if len(t.segments) == 0 {
		return ""
	}

	var out strings.Builder

	for _, seg := range t.segments {
		if seg.kind == segmentLiteral {
			out.WriteString(seg.literal)

			continue
		}

		value, found := Lookup(data, seg.path)
		if !found {
			slog.Warn("Unresolved template token",
				"token", seg.raw,
				"path", strings.Join(seg.path, "."))

			continue
		}

		out.WriteString(Stringify(value))
	}

	return out.String()
}

// Tokens returns the dot paths referenced by the template, in order.
func (t *Template) Tokens() []string {
	var tokens []string

	for _, seg := range t.segments {
		if seg.kind == segmentToken {
			tokens = append(tokens, strings.Join(seg.path, "."))
		}
	}

	return tokens
}

// Render compiles raw (through the cache) and renders it against data.
func Render(raw string, data map[string]any) string {
	return Compile(raw).Render(data)
}

// Lookup resolves a dot path against nested map data by sequential key
// lookup. A missing intermediate key means unresolved.
func Lookup(data map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	var current any = data

	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Stringify coerces a context value to its default string form. Currency
// and date formatting is the caller's responsibility, not the renderer's.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return stringifyFallback(v)
	}
}

func stringifyFallback(value any) string {
	if s, ok := value.(interface{ String() string }); ok {
		return s.String()
	}

	// Slices and maps from JSON contexts end up here; their default Go form
	// is still more useful in a message body than nothing.
	return fmt.Sprintf("%v", value)
}
