package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nasa-meteo/dashboard/internal/config"
	"github.com/nasa-meteo/dashboard/internal/dashboard"
	"github.com/nasa-meteo/dashboard/internal/telemetry"
	"github.com/nasa-meteo/dashboard/pkg/server"
)

type serveOptions struct {
	port    int
	host    string
	preload bool
}

func serveCmd(pf *projectFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start the dashboard server.

Views are loaded on first navigation and cached for the life of the
process, unless --preload (or views.preload) loads them at startup.

Examples:
  meteo serve
  meteo serve --port=9090
  meteo serve -C ./app --preload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, pf, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from meteo.json)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from meteo.json)")
	cmd.Flags().BoolVar(&opts.preload, "preload", false, "Load every view before accepting requests")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, pf *projectFlags, opts serveOptions) error {
	cfg, build, err := loadProject(pf)
	if err != nil {
		return err
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.preload {
		cfg.Views.Preload = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	logger = logger.With("app", cfg.Name)

	tel, gatherer := newTelemetry(cfg)

	src, err := dashboard.SourceFor(cfg, build, logger.With("component", "dashboard"))
	if err != nil {
		return err
	}
	app, err := dashboard.New(cfg, build, src, dashboard.Options{Logger: logger, Telemetry: tel})
	if err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	srvCfg := &server.Config{
		Address:         cfg.Address(),
		StaticPrefix:    cfg.StaticPrefix(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		RateLimit:       cfg.Navigation.RateLimit,
		RateWindow:      cfg.RateWindow(),
	}
	if dir := cfg.StaticPath(); isDir(dir) {
		srvCfg.StaticDir = dir
	} else {
		logger.Warn("static directory not found, assets disabled", "dir", dir)
	}
	if cfg.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := server.New(app.Navigator, app.Defines(), srvCfg,
		server.WithLogger(logger.With("component", "server")),
		server.WithConnObserver(tel),
		server.WithGatherer(gatherer),
	)

	out := cmd.OutOrStdout()
	printBanner(out)
	success(out, "Serving %d routes on http://%s", app.Table.Len(), cfg.Address())
	info(out, "views: %s", cfg.Views.Source)
	if srvCfg.MetricsPath != "" {
		info(out, "metrics: %s", srvCfg.MetricsPath)
	}

	return srv.Run(ctx)
}

// newTelemetry registers metrics on the default registry when they are
// exposed, and on a private one otherwise.
func newTelemetry(cfg *config.Config) (*telemetry.Telemetry, prometheus.Gatherer) {
	opts := []telemetry.Option{telemetry.WithNamespace(cfg.Metrics.Namespace)}
	if cfg.Tracing.Enabled {
		opts = append(opts, telemetry.WithTracing(cfg.Tracing.TracerName, nil))
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, telemetry.WithRegistry(prometheus.DefaultRegisterer))
		return telemetry.New(opts...), prometheus.DefaultGatherer
	}
	reg := prometheus.NewRegistry()
	opts = append(opts, telemetry.WithRegistry(reg))
	return telemetry.New(opts...), reg
}

func isDir(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
