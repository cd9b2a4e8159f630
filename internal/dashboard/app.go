package dashboard

import (
	"context"
	"log/slog"

	"github.com/nasa-meteo/dashboard/internal/config"
	"github.com/nasa-meteo/dashboard/internal/telemetry"
	"github.com/nasa-meteo/dashboard/pkg/buildconfig"
	"github.com/nasa-meteo/dashboard/pkg/component"
	"github.com/nasa-meteo/dashboard/pkg/navigation"
	"github.com/nasa-meteo/dashboard/pkg/router"
)

// App is the assembled dashboard: route table, component cache and
// navigator sharing one view source.
type App struct {
	Table     *router.Table
	Cache     *component.Cache
	Navigator *navigation.Navigator
	Build     *buildconfig.Config

	preload bool
}

// Options are optional dependencies of New.
type Options struct {
	Logger    *slog.Logger
	Telemetry *telemetry.Telemetry
}

// New assembles the dashboard from its configuration and view source.
func New(cfg *config.Config, build *buildconfig.Config, src component.Source, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	table, err := NewTable()
	if err != nil {
		return nil, err
	}

	cacheOpts := []component.CacheOption{
		component.WithLoadTimeout(cfg.LoadTimeout()),
		component.WithLogger(logger.With("component", "component-cache")),
	}
	navOpts := []navigation.Option{
		navigation.WithMaxRedirects(cfg.Navigation.MaxRedirects),
		navigation.WithLogger(logger.With("component", "navigation")),
	}
	if opts.Telemetry != nil {
		cacheOpts = append(cacheOpts, component.WithObserver(opts.Telemetry))
		navOpts = append(navOpts, navigation.WithObserver(opts.Telemetry))
	}

	cache := component.NewCache(NewLoader(src, build), cacheOpts...)
	return &App{
		Table:     table,
		Cache:     cache,
		Navigator: navigation.NewNavigator(table, cache, navOpts...),
		Build:     build,
		preload:   cfg.Views.Preload,
	}, nil
}

// Start preloads every view when views.preload is set.
func (a *App) Start(ctx context.Context) error {
	if !a.preload {
		return nil
	}
	return a.Cache.Preload(ctx, a.Table.Routes())
}

// Defines returns the decoded build-time constants passed to views.
func (a *App) Defines() map[string]any {
	return a.Build.Defines()
}
