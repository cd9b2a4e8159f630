package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPath     string
		wantQuery    string
		wantFragment string
		wantChanged  bool
		wantErr      error
	}{
		{name: "root", input: "/", wantPath: "/"},
		{name: "simple", input: "/foo/bar", wantPath: "/foo/bar"},
		{name: "trailing slash", input: "/foo/", wantPath: "/foo", wantChanged: true},
		{name: "collapse slashes", input: "/foo///bar", wantPath: "/foo/bar", wantChanged: true},
		{name: "single dot", input: "/foo/./bar", wantPath: "/foo/bar", wantChanged: true},
		{name: "double dot", input: "/foo/baz/../bar", wantPath: "/foo/bar", wantChanged: true},
		{name: "query", input: "/foo?lat=48.8&lon=2.3", wantPath: "/foo", wantQuery: "lat=48.8&lon=2.3"},
		{name: "fragment", input: "/?x=1#carte", wantPath: "/", wantQuery: "x=1", wantFragment: "carte"},
		{name: "valid escape", input: "/m%C3%A9t%C3%A9o", wantPath: "/m%C3%A9t%C3%A9o"},
		{name: "empty", input: "", wantErr: ErrEmptyPath},
		{name: "relative", input: "foo/bar", wantErr: ErrRelativePath},
		{name: "scheme", input: "https://example.com/", wantErr: ErrAbsoluteURL},
		{name: "protocol relative", input: "//example.com", wantErr: ErrAbsoluteURL},
		{name: "backslash", input: "/foo\\bar", wantErr: ErrBackslashInPath},
		{name: "literal nul", input: "/foo\x00", wantErr: ErrNullByteInPath},
		{name: "encoded nul", input: "/foo%00", wantErr: ErrNullByteInPath},
		{name: "bad escape", input: "/foo%GG", wantErr: ErrInvalidPercentEscape},
		{name: "truncated escape", input: "/foo%2", wantErr: ErrInvalidPercentEscape},
		{name: "escapes root", input: "/../secret", wantErr: ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Canonicalize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonicalize(%q) unexpected error: %v", tt.input, err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tt.wantQuery)
			}
			if got.Fragment != tt.wantFragment {
				t.Errorf("Fragment = %q, want %q", got.Fragment, tt.wantFragment)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"/foo", []string{"foo"}},
		{"/foo/bar", []string{"foo", "bar"}},
		{"/m%C3%A9t%C3%A9o/a%20b", []string{"météo", "a b"}},
	}

	for _, tt := range tests {
		got, err := Segments(tt.path)
		if err != nil {
			t.Fatalf("Segments(%q) error: %v", tt.path, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %#v, want %#v", tt.path, got, tt.want)
		}
	}
}
