package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/nasa-meteo/dashboard/internal/config"
	"github.com/nasa-meteo/dashboard/pkg/buildconfig"
)

// loadProject loads meteo.json and the build configuration it points to.
func loadProject(pf *projectFlags) (*config.Config, *buildconfig.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if pf.configFile != "" {
		cfg, err = config.LoadFile(pf.configFile)
	} else {
		cfg, err = config.LoadOrDefault(pf.dir)
	}
	if err != nil {
		return nil, nil, err
	}

	build, err := buildconfig.LoadOrDefault(cfg.BuildPath())
	if err != nil {
		return nil, nil, err
	}
	return cfg, build, nil
}

// newLogger builds the process logger from log.level and log.format.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
