package component

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/router"
)

// State is the load state of a route's component.
type State int

const (
	// Unloaded means no fetch has completed successfully yet.
	Unloaded State = iota
	// Loading means a fetch is in flight.
	Loading
	// Loaded is terminal: the component is kept for the process lifetime.
	Loaded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer receives cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// LoadStarted is called before an underlying fetch. The returned
	// context is passed to the loader and to LoadFinished.
	LoadStarted(ctx context.Context, key string) context.Context

	// LoadFinished is called after the fetch returns.
	LoadFinished(ctx context.Context, key string, elapsed time.Duration, err error)

	// CacheHit is called when an activation finds the component loaded.
	CacheHit(key string)
}

type nopObserver struct{}

func (nopObserver) LoadStarted(ctx context.Context, _ string) context.Context { return ctx }
func (nopObserver) LoadFinished(context.Context, string, time.Duration, error) {}
func (nopObserver) CacheHit(string)                                            {}

// attempt is one underlying fetch. Its fields are written once, before done
// is closed.
type attempt struct {
	done chan struct{}
	comp Component
	err  error
}

type entry struct {
	state    State
	comp     Component
	inflight *attempt
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries  int
	Loaded   int
	Loading  int
	Fetches  int64
	Failures int64
	Hits     int64
}

// Cache memoizes component loads by route identity.
type Cache struct {
	loader   Loader
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	entries  map[string]*entry
	fetches  int64
	failures int64
	hits     int64

	inflight sync.WaitGroup
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadTimeout bounds each underlying fetch. Zero means no bound.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.timeout = d
	}
}

// WithObserver registers an observer for load events.
func WithObserver(o Observer) CacheOption {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates a cache that loads components with loader.
func NewCache(loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:   loader,
		observer: nopObserver{},
		logger:   slog.Default().With("component", "cache"),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the component of route, loading it on first activation.
//
// If a load for the route is already in flight, Get waits for it instead of
// starting another. When ctx ends first, Get returns ctx.Err() and the load
// keeps running; its result is still cached. A failed load leaves the route
// unloaded so that the next activation retries.
func (c *Cache) Get(ctx context.Context, route *router.Route) (Component, error) {
	key := route.Key()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}

	switch e.state {
	case Loaded:
		c.hits++
		comp := e.comp
		c.mu.Unlock()
		c.observer.CacheHit(key)
		return comp, nil

	case Unloaded:
		a := &attempt{done: make(chan struct{})}
		e.state = Loading
		e.inflight = a
		c.fetches++
		c.inflight.Add(1)
		go c.load(ctx, route, e, a)
	}

	a := e.inflight
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.comp, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs one fetch detached from the caller's cancellation.
func (c *Cache) load(parent context.Context, route *router.Route, e *entry, a *attempt) {
	defer c.inflight.Done()

	key := route.Key()
	ctx := context.WithoutCancel(parent)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx = c.observer.LoadStarted(ctx, key)

	start := time.Now()
	comp, err := c.safeLoad(ctx, route)
	elapsed := time.Since(start)
	if err == nil && comp == nil {
		err = fmt.Errorf("loader returned no component")
	}
	if err != nil {
		err = errors.New("E151").WithDetailf("route %q", key).Wrap(err)
	}
	c.observer.LoadFinished(ctx, key, elapsed, err)

	c.mu.Lock()
	e.inflight = nil
	if err != nil {
		e.state = Unloaded
		c.failures++
	} else {
		e.state = Loaded
		e.comp = comp
	}
	a.comp, a.err = comp, err
	c.mu.Unlock()
	close(a.done)

	if err != nil {
		c.logger.Warn("component load failed", "route", key, "elapsed", elapsed, "error", err)
		return
	}
	c.logger.Debug("component loaded", "route", key, "elapsed", elapsed)
}

func (c *Cache) safeLoad(ctx context.Context, route *router.Route) (comp Component, err error) {
	defer func() {
		if r := recover(); r != nil {
			comp, err = nil, fmt.Errorf("loader panic: %v", r)
		}
	}()
	return c.loader.Load(ctx, route)
}

// State returns the load state of the route with the given key.
func (c *Cache) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return Unloaded
}

// Preload loads the components of all rendering routes concurrently and
// returns the first error.
func (c *Cache) Preload(ctx context.Context, routes []*router.Route) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range routes {
		if r.IsRedirect() {
			continue
		}
		r := r
		g.Go(func() error {
			_, err := c.Get(gctx, r)
			return err
		})
	}
	return g.Wait()
}

// Wait blocks until no fetch is in flight.
func (c *Cache) Wait() {
	c.inflight.Wait()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:  len(c.entries),
		Fetches:  c.fetches,
		Failures: c.failures,
		Hits:     c.hits,
	}
	for _, e := range c.entries {
		switch e.state {
		case Loaded:
			s.Loaded++
		case Loading:
			s.Loading++
		}
	}
	return s
}
