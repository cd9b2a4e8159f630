package router

// Well-known metadata keys.
const (
	// MetaTitle is the document title shown while the route is active.
	MetaTitle = "title"

	// MetaTransition names the view transition played when entering the route.
	MetaTransition = "transition"
)

// Meta holds arbitrary per-route metadata.
type Meta map[string]any

// String returns the value at key if it is a string.
func (m Meta) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Title returns the configured display title, or "" if none is set.
func (m Meta) Title() string {
	s, _ := m.String(MetaTitle)
	return s
}

// Transition returns the configured view transition, or "" if none is set.
func (m Meta) Transition() string {
	s, _ := m.String(MetaTransition)
	return s
}

func (m Meta) clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Route is one navigable application state.
//
// Routes returned by a Table are shared and must not be modified.
type Route struct {
	// Path is the URL pattern (e.g., "/", "/stations/:id", "/*pathMatch").
	Path string

	// Name is the unique symbolic identifier. Redirect-only routes may
	// leave it empty.
	Name string

	// Component references the lazily-loaded view rendered for this route
	// (e.g., "@/views/tableaudebord.html"). Empty for redirect routes.
	Component string

	// Redirect is the path navigation continues to instead of rendering.
	Redirect string

	// Meta holds arbitrary metadata; see MetaTitle and MetaTransition.
	Meta Meta

	pattern pattern
}

// Key returns the route identity used for component caching: the name if
// set, otherwise the path pattern.
func (r *Route) Key() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}

// IsCatchAll reports whether the route ends in a catch-all segment.
func (r *Route) IsCatchAll() bool {
	return r.pattern.catchAll()
}

// IsRedirect reports whether the route redirects instead of rendering.
func (r *Route) IsRedirect() bool {
	return r.Redirect != ""
}

// Resolution is the outcome of matching a path against a Table.
type Resolution struct {
	// Route is the matched route. Never nil for a valid Table.
	Route *Route

	// Path is the canonical form of the input path. For malformed input it
	// is the input unchanged.
	Path string

	// Query is the raw query string of the input, without "?".
	Query string

	// Params holds the values of :param and catch-all segments.
	Params map[string]string

	// Invalid is the canonicalization error that made the input
	// non-matching, if any.
	Invalid error
}

// FullPath returns Path with the query string re-attached.
func (r Resolution) FullPath() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}
