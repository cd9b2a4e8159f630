package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nasa-meteo/dashboard/pkg/navigation"
)

// Paths served by the server itself.
const (
	LivePath   = "/_meteo/nav"
	ClientPath = "/_meteo/client.js"
	HealthPath = "/healthz"
)

// ConnObserver receives live connection events. Implementations must be
// safe for concurrent use.
type ConnObserver interface {
	ConnectionOpened()
	ConnectionClosed()
	WebSocketError(errorType string)
}

type nopConnObserver struct{}

func (nopConnObserver) ConnectionOpened()     {}
func (nopConnObserver) ConnectionClosed()     {}
func (nopConnObserver) WebSocketError(string) {}

// Server is the dashboard HTTP/WebSocket server.
type Server struct {
	nav     *navigation.Navigator
	defines map[string]any
	config  *Config

	upgrader websocket.Upgrader
	router   chi.Router
	gatherer prometheus.Gatherer
	conns    ConnObserver
	logger   *slog.Logger

	httpServer *http.Server

	liveMu sync.Mutex
	live   map[*liveConn]struct{}
	liveWG sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConnObserver registers an observer for live connections.
func WithConnObserver(o ConnObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.conns = o
		}
	}
}

// WithGatherer sets the Prometheus gatherer exposed at MetricsPath.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// New creates a server navigating with nav. defines are the build-time
// constants passed to views and to the client.
func New(nav *navigation.Navigator, defines map[string]any, config *Config, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		nav:     nav,
		defines: defines,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		gatherer: prometheus.DefaultGatherer,
		conns:    nopConnObserver{},
		logger:   slog.Default().With("component", "server"),
		live:     make(map[*liveConn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.GetHead)

	r.Get(HealthPath, s.handleHealth)
	r.Get(ClientPath, s.handleClient)
	if s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	live := http.Handler(http.HandlerFunc(s.handleLive))
	if s.config.RateLimit > 0 {
		live = rateLimit(s.config.RateLimit, s.config.RateWindow, func() {
			s.conns.WebSocketError("rate_limit")
		})(live)
	}
	r.Handle(LivePath, live)

	if s.config.StaticDir != "" {
		static := newStaticHandler(os.DirFS(s.config.StaticDir), s.config.StaticPrefix)
		r.Handle(static.prefix+"*", static)
	}

	r.Get("/*", s.handlePage)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.httpServer.RegisterOnShutdown(s.closeLive)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Shutdown stops accepting connections, closes live connections and waits
// for in-flight requests, bounded by the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	} else {
		s.closeLive()
	}

	done := make(chan struct{})
	go func() {
		s.liveWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// LiveConnections returns the number of open live connections.
func (s *Server) LiveConnections() int {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return len(s.live)
}

type healthResponse struct {
	Status string `json:"status"`
	Routes int    `json:"routes"`
	Views  struct {
		Loaded  int `json:"loaded"`
		Loading int `json:"loading"`
		Fetches int `json:"fetches"`
		Hits    int `json:"hits"`
	} `json:"views"`
	Live int `json:"live"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.nav.Cache().Stats()

	var resp healthResponse
	resp.Status = "ok"
	resp.Routes = s.nav.Table().Len()
	resp.Views.Loaded = stats.Loaded
	resp.Views.Loading = stats.Loading
	resp.Views.Fetches = int(stats.Fetches)
	resp.Views.Hits = int(stats.Hits)
	resp.Live = s.LiveConnections()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

// requestLogger logs each request with the chi request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"elapsed", time.Since(start))
		})
	}
}
