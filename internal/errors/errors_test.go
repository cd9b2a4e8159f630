package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "routing error",
			code:    "E102",
			wantMsg: "Missing root route",
			wantCat: CategoryRouting,
		},
		{
			name:    "config error",
			code:    "E120",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "component error",
			code:    "E151",
			wantMsg: "Component load failed",
			wantCat: CategoryComponent,
		},
		{
			name:    "build error",
			code:    "E161",
			wantMsg: "Unknown alias",
			wantCat: CategoryBuild,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestMeteoError_Error(t *testing.T) {
	err := New("E102")
	if got, want := err.Error(), "E102: Missing root route"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = New("E151").WithDetail("route tableaudebord").Wrap(fmt.Errorf("timeout"))
	if got, want := err.Error(), "E151: Component load failed (route tableaudebord): timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &MeteoError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestMeteoError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E151").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	wrapped := fmt.Errorf("navigate: %w", err)
	if !HasCode(wrapped, "E151") {
		t.Error("HasCode should see through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, "E150") {
		t.Error("HasCode matched the wrong code")
	}
	if got := CodeOf(wrapped); got != "E151" {
		t.Errorf("CodeOf = %q, want E151", got)
	}
	if got := CodeOf(cause); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E151") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	me := New("E150")
	if FromError(fmt.Errorf("wrapped: %w", me), "E151") != me {
		t.Error("FromError should return the MeteoError in the chain as-is")
	}

	std := stderrors.New("plain")
	result := FromError(std, "E151")
	if result.Wrapped != std || result.Code != "E151" {
		t.Errorf("FromError(plain) = %+v", result)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E102").
		WithDetail("route table has no route at /").
		WithSuggestion("Register the dashboard at /").
		WithLocation("routes.yaml", 3, 0)

	out := err.Format()
	for _, want := range []string{
		"ERROR E102: Missing root route",
		"routes.yaml:3",
		"route table has no route at /",
		"Hint: Register the dashboard at /",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}

	// Template detail is used when no occurrence detail was set.
	out = New("E104").Format()
	if !strings.Contains(out, "catch-all") {
		t.Errorf("Format() should include template detail, got:\n%s", out)
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "meteo.build.yaml", Line: 7}, "meteo.build.yaml:7"},
		{&Location{File: "meteo.build.yaml", Line: 7, Column: 3}, "meteo.build.yaml:7:3"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("serve: %w", New("E121")))
	if !strings.Contains(buf.String(), "ERROR E121: Invalid port") {
		t.Errorf("Fprint(MeteoError) = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCategories(t *testing.T) {
	for code, tmpl := range registry {
		if tmpl.Message == "" {
			t.Errorf("%s has no message", code)
		}
		if tmpl.Category == "" {
			t.Errorf("%s has no category", code)
		}
		if _, ok := Lookup(code); !ok {
			t.Errorf("Lookup(%s) failed", code)
		}
	}
}
