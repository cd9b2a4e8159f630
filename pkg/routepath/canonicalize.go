// Package routepath normalizes navigation paths before they are matched
// against the route table.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result is a canonicalized navigation path.
type Result struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Fragment is the raw fragment without the leading "#".
	Fragment string

	// Changed reports whether Path differs from the input path component.
	Changed bool
}

// Canonicalization errors. Every one of them makes a path non-matching.
var (
	ErrEmptyPath            = errors.New("empty path")
	ErrRelativePath         = errors.New("path does not start with /")
	ErrAbsoluteURL          = errors.New("absolute URL is not a navigation path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// Canonicalize normalizes a navigation path.
//
// The following transformations are applied:
//   - query string and fragment are split off
//   - repeated slashes collapse (/a//b → /a/b)
//   - "." segments are dropped and ".." segments resolved
//   - a trailing slash is removed, except for the root
//
// Empty input, relative paths, absolute URLs, backslashes, NUL bytes,
// malformed percent escapes and ".." escaping the root are rejected.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{}, ErrEmptyPath
	}

	rest, fragment, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")

	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") {
		return Result{}, ErrAbsoluteURL
	}
	if !strings.HasPrefix(path, "/") {
		return Result{}, ErrRelativePath
	}
	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	canonical := "/" + strings.Join(segments, "/")
	return Result{
		Path:     canonical,
		Query:    query,
		Fragment: fragment,
		Changed:  canonical != path,
	}, nil
}

// Segments splits a canonical path into its percent-decoded segments.
// The root path has no segments.
func Segments(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}

	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return nil, ErrInvalidPercentEscape
		}
		out = append(out, decoded)
	}
	return out, nil
}

// validatePercentEscapes checks that every '%' starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
