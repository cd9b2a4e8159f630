package router

import (
	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/routepath"
)

// Table is an ordered, immutable route table.
// It is safe for concurrent use.
type Table struct {
	routes   []*Route
	byName   map[string]*Route
	catchAll *Route
}

// NewTable validates routes and builds a table evaluated in the given order.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes: make([]*Route, 0, len(routes)),
		byName: make(map[string]*Route, len(routes)),
	}

	roots := 0
	for i := range routes {
		r := routes[i]
		p, err := compilePattern(r.Path)
		if err != nil {
			return nil, errors.New("E100").Wrap(err)
		}
		r.pattern = p
		r.Meta = r.Meta.clone()

		if (r.Component == "") == (r.Redirect == "") {
			return nil, errors.New("E107").WithDetailf("route %q", r.Path)
		}

		if r.Name == "" && r.Component != "" {
			return nil, errors.New("E112").WithDetailf("route %q", r.Path)
		}
		if r.Name != "" {
			if _, dup := t.byName[r.Name]; dup {
				return nil, errors.New("E101").WithDetailf("name %q", r.Name)
			}
		}

		if r.Path == "/" {
			roots++
		}

		route := &r
		if route.IsCatchAll() {
			if t.catchAll != nil {
				return nil, errors.New("E106").WithDetailf("%q and %q", t.catchAll.Path, route.Path)
			}
			if !route.IsRedirect() {
				return nil, errors.New("E107").
					WithDetailf("catch-all route %q must redirect", route.Path)
			}
			t.catchAll = route
		}

		if r.Name != "" {
			t.byName[r.Name] = route
		}
		t.routes = append(t.routes, route)
	}

	switch {
	case roots == 0:
		return nil, errors.New("E102").WithSuggestion(`Register the dashboard route with Path: "/"`)
	case roots > 1:
		return nil, errors.New("E103").WithDetailf("%d routes registered at /", roots)
	}

	if t.catchAll == nil {
		return nil, errors.New("E104").WithSuggestion(`Append Route{Path: "/*pathMatch", Redirect: "/"}`)
	}
	if t.routes[len(t.routes)-1] != t.catchAll {
		return nil, errors.New("E105").WithDetailf("catch-all %q", t.catchAll.Path)
	}

	for _, r := range t.routes {
		if !r.IsRedirect() {
			continue
		}
		res := t.Match(r.Redirect)
		if res.Invalid != nil || res.Route.IsRedirect() {
			return nil, errors.New("E108").
				WithDetailf("route %q redirects to %q", r.Path, r.Redirect)
		}
	}

	return t, nil
}

// Resolve returns the first route matching path. Every path resolves; the
// catch-all route receives everything else, including malformed paths.
func (t *Table) Resolve(path string) *Route {
	return t.Match(path).Route
}

// Match resolves path and returns the matched route with its parameters.
func (t *Table) Match(path string) Resolution {
	canon, err := routepath.Canonicalize(path)
	if err != nil {
		return t.fallThrough(path, err)
	}

	segs, err := routepath.Segments(canon.Path)
	if err != nil {
		return t.fallThrough(path, err)
	}

	for _, r := range t.routes {
		params := make(map[string]string)
		if r.pattern.match(segs, params) {
			return Resolution{
				Route:  r,
				Path:   canon.Path,
				Query:  canon.Query,
				Params: params,
			}
		}
	}

	// Unreachable for a validated table: the catch-all matches everything.
	return t.fallThrough(path, nil)
}

func (t *Table) fallThrough(path string, invalid error) Resolution {
	name := t.catchAll.pattern.segments[len(t.catchAll.pattern.segments)-1].value
	return Resolution{
		Route:   t.catchAll,
		Path:    path,
		Params:  map[string]string{name: path},
		Invalid: invalid,
	}
}

// Lookup returns the route registered under name.
func (t *Table) Lookup(name string) (*Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// URL builds the path of the named route with params substituted.
func (t *Table) URL(name string, params map[string]string) (string, error) {
	r, ok := t.byName[name]
	if !ok {
		return "", errors.New("E110").WithDetailf("name %q", name)
	}
	path, err := r.pattern.build(params)
	if err != nil {
		return "", errors.New("E111").WithDetailf("route %q", name).Wrap(err)
	}
	return path, nil
}

// Routes returns the routes in evaluation order.
func (t *Table) Routes() []*Route {
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// CatchAll returns the table's catch-all route.
func (t *Table) CatchAll() *Route {
	return t.catchAll
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}
