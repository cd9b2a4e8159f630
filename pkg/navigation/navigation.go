package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	merrors "github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/component"
	"github.com/nasa-meteo/dashboard/pkg/router"
)

// FallbackTitle is the document title used when a route configures none.
const FallbackTitle = "NASA Dashboard"

// DefaultMaxRedirects bounds the redirects followed by one navigation.
const DefaultMaxRedirects = 10

// ErrSuperseded is returned when a newer navigation on the same Context
// started while this one was waiting for its component.
var ErrSuperseded = errors.New("navigation superseded")

// TitleSetter applies the document title after a navigation commits.
type TitleSetter interface {
	SetTitle(title string)
}

// TitleFunc adapts a function to TitleSetter.
type TitleFunc func(title string)

// SetTitle implements TitleSetter.
func (f TitleFunc) SetTitle(title string) { f(title) }

// Hook runs after every committed navigation. from is nil for the first
// navigation of a Context. Hooks run in commit order and may read the
// Context; Current may already report a later commit. A hook must not call
// Navigate on the same Context, since that navigation waits for the hook to
// return. Go is fine.
type Hook func(to, from *Result)

// Observer receives navigation events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// NavigationStarted is called before resolution. The returned context
	// is used for the rest of the navigation.
	NavigationStarted(ctx context.Context, id, path string) context.Context

	// NavigationFinished is called once per navigation. res is nil when
	// err is non-nil.
	NavigationFinished(ctx context.Context, res *Result, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) NavigationStarted(ctx context.Context, _, _ string) context.Context { return ctx }
func (nopObserver) NavigationFinished(context.Context, *Result, time.Duration, error)  {}

// Result is a committed navigation.
type Result struct {
	// ID uniquely identifies the navigation.
	ID string

	// Route is the route that rendered. Never a redirect route.
	Route *router.Route

	// Path is the canonical path of Route that was rendered.
	Path string

	// Query is the raw query string of the rendered path. Redirects do not
	// carry the original query over.
	Query string

	// Params holds route parameter values.
	Params map[string]string

	// RedirectedFrom is the path originally requested when at least one
	// redirect was followed, "" otherwise.
	RedirectedFrom string

	// Redirects counts the redirects followed.
	Redirects int

	// Component is the loaded view.
	Component component.Component

	// Title is the document title applied for this navigation.
	Title string

	// Transition is the route's view transition, if any.
	Transition string
}

// Redirected reports whether the navigation followed a redirect.
func (r *Result) Redirected() bool {
	return r.Redirects > 0
}

// FullPath returns Path with the query string re-attached.
func (r *Result) FullPath() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Render renders the result's component with the given build-time defines.
func (r *Result) Render(w io.Writer, define map[string]any) error {
	return r.Component.Render(w, component.ViewData{
		Route:  r.Route,
		Path:   r.Path,
		Query:  r.Query,
		Params: r.Params,
		Title:  r.Title,
		Define: define,
	})
}

// TitleFor returns the document title of route.
func TitleFor(route *router.Route) string {
	if t := route.Meta.Title(); t != "" {
		return t
	}
	return FallbackTitle
}

// Navigator resolves and loads routes. It is shared by all Contexts and is
// safe for concurrent use.
type Navigator struct {
	table        *router.Table
	cache        *component.Cache
	observer     Observer
	logger       *slog.Logger
	maxRedirects int
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithObserver registers an observer for navigation events.
func WithObserver(o Observer) Option {
	return func(n *Navigator) {
		if o != nil {
			n.observer = o
		}
	}
}

// WithLogger sets the navigator logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithMaxRedirects bounds the redirects followed by one navigation.
func WithMaxRedirects(max int) Option {
	return func(n *Navigator) {
		if max > 0 {
			n.maxRedirects = max
		}
	}
}

// NewNavigator creates a navigator over table, loading components via cache.
func NewNavigator(table *router.Table, cache *component.Cache, opts ...Option) *Navigator {
	n := &Navigator{
		table:        table,
		cache:        cache,
		observer:     nopObserver{},
		logger:       slog.Default().With("component", "navigation"),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Table returns the route table.
func (n *Navigator) Table() *router.Table {
	return n.table
}

// Cache returns the component cache.
func (n *Navigator) Cache() *component.Cache {
	return n.cache
}

// Target is the route a path ends on once redirects are followed.
type Target struct {
	Resolution     router.Resolution
	RedirectedFrom string
	Redirects      int
}

// Follow resolves path and follows redirects without loading anything.
func (n *Navigator) Follow(path string) (Target, error) {
	res := n.table.Match(path)
	target := Target{}

	for res.Route.IsRedirect() {
		if target.Redirects >= n.maxRedirects {
			return Target{}, merrors.New("E109").
				WithDetailf("%d redirects starting at %q", target.Redirects, path)
		}
		if target.Redirects == 0 {
			target.RedirectedFrom = res.FullPath()
		}
		target.Redirects++

		res = n.table.Match(res.Route.Redirect)
	}

	target.Resolution = res
	return target, nil
}

// NewContext creates a navigation context. title may be nil.
func (n *Navigator) NewContext(title TitleSetter) *Context {
	c := &Context{nav: n, title: title}
	c.effectsCond = sync.NewCond(&c.effectsMu)
	return c
}

// Context is the navigation state of one session.
type Context struct {
	nav   *Navigator
	title TitleSetter

	mu        sync.Mutex
	latest    uint64
	current   *Result
	hooks     []Hook
	committed uint64

	// Effects of commit n run once applied == n-1. mu is never held while
	// waiting for or running them.
	effectsMu   sync.Mutex
	effectsCond *sync.Cond
	applied     uint64
}

// AfterEach registers a hook run after every committed navigation.
func (c *Context) AfterEach(h Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

// Current returns the last committed navigation, or nil.
func (c *Context) Current() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentRoute returns the active route, or nil before the first navigation.
func (c *Context) CurrentRoute() *router.Route {
	if cur := c.Current(); cur != nil {
		return cur.Route
	}
	return nil
}

// Title returns the title applied by the last committed navigation.
func (c *Context) Title() string {
	if cur := c.Current(); cur != nil {
		return cur.Title
	}
	return ""
}

// Navigate resolves path, follows redirects, loads the component and commits.
//
// The title effect and hooks run only after a successful commit. If another
// Navigate on this Context starts before the component is ready, this call
// returns ErrSuperseded and commits nothing; the load still completes and
// stays cached.
func (c *Context) Navigate(ctx context.Context, path string) (*Result, error) {
	return c.run(ctx, c.reserve(), path)
}

// Go starts a navigation in a new goroutine and calls done, if non-nil,
// with its outcome. The navigation is ordered at call time: a later Go or
// Navigate on this Context supersedes it even if its goroutine has not been
// scheduled yet.
func (c *Context) Go(ctx context.Context, path string, done func(*Result, error)) {
	seq := c.reserve()
	go func() {
		res, err := c.run(ctx, seq, path)
		if done != nil {
			done(res, err)
		}
	}()
}

func (c *Context) reserve() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest++
	return c.latest
}

func (c *Context) run(ctx context.Context, seq uint64, path string) (*Result, error) {
	n := c.nav

	id := uuid.NewString()
	start := time.Now()
	ctx = n.observer.NavigationStarted(ctx, id, path)

	res, err := c.navigate(ctx, id, seq, path)
	n.observer.NavigationFinished(ctx, res, time.Since(start), err)

	switch {
	case err == nil:
		n.logger.Debug("navigated",
			"id", id,
			"path", path,
			"route", res.Route.Key(),
			"redirected_from", res.RedirectedFrom,
			"elapsed", time.Since(start))
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		n.logger.Debug("navigation abandoned", "id", id, "path", path, "error", err)
	default:
		n.logger.Warn("navigation failed", "id", id, "path", path, "error", err)
	}
	return res, err
}

func (c *Context) navigate(ctx context.Context, id string, seq uint64, path string) (*Result, error) {
	n := c.nav

	target, err := n.Follow(path)
	if err != nil {
		return nil, err
	}
	route := target.Resolution.Route

	comp, err := n.cache.Get(ctx, route)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:             id,
		Route:          route,
		Path:           target.Resolution.Path,
		Query:          target.Resolution.Query,
		Params:         target.Resolution.Params,
		RedirectedFrom: target.RedirectedFrom,
		Redirects:      target.Redirects,
		Component:      comp,
		Title:          TitleFor(route),
		Transition:     route.Meta.Transition(),
	}

	c.mu.Lock()
	if seq != c.latest {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	from := c.current
	c.current = res
	hooks := append([]Hook(nil), c.hooks...)
	c.committed++
	ticket := c.committed
	c.mu.Unlock()

	c.effectsMu.Lock()
	for c.applied != ticket-1 {
		c.effectsCond.Wait()
	}
	c.effectsMu.Unlock()

	defer func() {
		c.effectsMu.Lock()
		c.applied = ticket
		c.effectsCond.Broadcast()
		c.effectsMu.Unlock()
	}()
	if c.title != nil {
		c.title.SetTitle(res.Title)
	}
	for _, h := range hooks {
		h(res, from)
	}
	return res, nil
}
