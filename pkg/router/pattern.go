package router

import (
	"fmt"
	"net/url"
	"strings"
)

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment
	catchAllSegment
)

type patternSegment struct {
	kind segmentKind

	// value is the literal text or the parameter name.
	value string
}

// pattern is a compiled route path.
type pattern struct {
	segments []patternSegment
}

// compilePattern parses a route path. Patterns are canonical: they start
// with "/", have no empty segments and no trailing slash except the root.
func compilePattern(raw string) (pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}
	if raw == "/" {
		return pattern{}, nil
	}

	parts := strings.Split(raw[1:], "/")
	p := pattern{segments: make([]patternSegment, 0, len(parts))}
	seen := make(map[string]bool)

	for i, part := range parts {
		switch {
		case part == "":
			return pattern{}, fmt.Errorf("pattern %q has an empty segment", raw)

		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if name == "" {
				return pattern{}, fmt.Errorf("pattern %q has an unnamed catch-all", raw)
			}
			if i != len(parts)-1 {
				return pattern{}, fmt.Errorf("pattern %q: catch-all *%s must be the last segment", raw, name)
			}
			if seen[name] {
				return pattern{}, fmt.Errorf("pattern %q repeats parameter %q", raw, name)
			}
			p.segments = append(p.segments, patternSegment{kind: catchAllSegment, value: name})

		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return pattern{}, fmt.Errorf("pattern %q has an unnamed parameter", raw)
			}
			if seen[name] {
				return pattern{}, fmt.Errorf("pattern %q repeats parameter %q", raw, name)
			}
			seen[name] = true
			p.segments = append(p.segments, patternSegment{kind: paramSegment, value: name})

		default:
			if part == "." || part == ".." {
				return pattern{}, fmt.Errorf("pattern %q has a dot segment", raw)
			}
			p.segments = append(p.segments, patternSegment{kind: literalSegment, value: part})
		}
	}

	return p, nil
}

func (p pattern) catchAll() bool {
	n := len(p.segments)
	return n > 0 && p.segments[n-1].kind == catchAllSegment
}

// match reports whether segs (decoded path segments) match the pattern and
// records parameter values into params on success.
func (p pattern) match(segs []string, params map[string]string) bool {
	captured := make(map[string]string)

	for i, ps := range p.segments {
		if ps.kind == catchAllSegment {
			captured[ps.value] = strings.Join(segs[i:], "/")
			for k, v := range captured {
				params[k] = v
			}
			return true
		}
		if i >= len(segs) {
			return false
		}
		switch ps.kind {
		case literalSegment:
			if segs[i] != ps.value {
				return false
			}
		case paramSegment:
			captured[ps.value] = segs[i]
		}
	}

	if len(segs) != len(p.segments) {
		return false
	}
	for k, v := range captured {
		params[k] = v
	}
	return true
}

// build renders the pattern with params substituted.
func (p pattern) build(params map[string]string) (string, error) {
	if len(p.segments) == 0 {
		return "/", nil
	}

	var b strings.Builder
	for _, ps := range p.segments {
		switch ps.kind {
		case literalSegment:
			b.WriteString("/")
			b.WriteString(ps.value)

		case paramSegment:
			v, ok := params[ps.value]
			if !ok || v == "" {
				return "", fmt.Errorf("missing value for :%s", ps.value)
			}
			b.WriteString("/")
			b.WriteString(url.PathEscape(v))

		case catchAllSegment:
			v := strings.Trim(params[ps.value], "/")
			if v == "" {
				continue
			}
			for _, seg := range strings.Split(v, "/") {
				b.WriteString("/")
				b.WriteString(url.PathEscape(seg))
			}
		}
	}

	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}
