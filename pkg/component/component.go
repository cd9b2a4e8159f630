package component

import (
	"bytes"
	"context"
	"html/template"
	"io"

	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/router"
)

// Component is a loaded route view.
type Component interface {
	// Render writes the view's HTML for the given navigation.
	Render(w io.Writer, data ViewData) error
}

// ViewData is passed to a component when it renders.
type ViewData struct {
	// Route is the active route.
	Route *router.Route

	// Path is the canonical path that was navigated to.
	Path string

	// Query is the raw query string.
	Query string

	// Params holds route parameter values.
	Params map[string]string

	// Title is the document title for this navigation.
	Title string

	// Define holds build-time constants (e.g., CESIUM_BASE_URL).
	Define map[string]any
}

// Loader fetches and instantiates the component of a route.
type Loader interface {
	Load(ctx context.Context, route *router.Route) (Component, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, route *router.Route) (Component, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, route *router.Route) (Component, error) {
	return f(ctx, route)
}

// TemplateView is a Component backed by an html/template.
type TemplateView struct {
	tmpl *template.Template
}

// ParseView parses src as an HTML template view.
func ParseView(name string, src []byte, funcs template.FuncMap) (*TemplateView, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(src))
	if err != nil {
		return nil, errors.New("E153").WithDetailf("view %q", name).Wrap(err)
	}
	return &TemplateView{tmpl: tmpl}, nil
}

// Name returns the template name.
func (v *TemplateView) Name() string {
	return v.tmpl.Name()
}

// Render implements Component. Output is buffered so that a failing
// template never writes a partial view.
func (v *TemplateView) Render(w io.Writer, data ViewData) error {
	var buf bytes.Buffer
	if err := v.tmpl.Execute(&buf, data); err != nil {
		return errors.New("E152").WithDetailf("view %q", v.tmpl.Name()).Wrap(err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// ViewLoader is a Loader that fetches template views from a Source.
type ViewLoader struct {
	// Source provides the raw view bytes.
	Source Source

	// Key maps a route's component reference to a source key. When nil the
	// reference is used unchanged.
	Key func(ref string) (string, error)

	// Funcs are extra template functions made available to every view.
	Funcs template.FuncMap
}

// Load implements Loader.
func (l *ViewLoader) Load(ctx context.Context, route *router.Route) (Component, error) {
	key := route.Component
	if l.Key != nil {
		k, err := l.Key(route.Component)
		if err != nil {
			return nil, err
		}
		key = k
	}

	src, err := l.Source.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return ParseView(route.Component, src, l.Funcs)
}
