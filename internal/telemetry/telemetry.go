// Package telemetry records Prometheus metrics and OpenTelemetry spans for
// navigations and component loads.
//
// A Telemetry value implements both navigation.Observer and
// component.Observer, so one instance is registered on the navigator and on
// the component cache:
//
//	tel := telemetry.New(telemetry.WithNamespace("meteo"))
//	cache := component.NewCache(loader, component.WithObserver(tel))
//	nav := navigation.NewNavigator(table, cache, navigation.WithObserver(tel))
//
// Metrics collected:
//   - meteo_navigations_total: navigations by route and outcome
//   - meteo_navigation_duration_seconds: navigation latency by outcome
//   - meteo_redirects_total: redirects followed by committed navigations
//   - meteo_component_loads_total: view fetches by route and result
//   - meteo_component_load_duration_seconds: view fetch latency by route
//   - meteo_component_cache_hits_total: activations served from the cache
//   - meteo_live_connections: open live navigation connections
//   - meteo_websocket_errors_total: live navigation errors by type
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/nasa-meteo/dashboard/pkg/navigation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Navigation outcomes used as label values.
const (
	OutcomeOK         = "ok"
	OutcomeRedirected = "redirected"
	OutcomeSuperseded = "superseded"
	OutcomeCanceled   = "canceled"
	OutcomeError      = "error"
)

const unknownRoute = "unknown"

// Config configures a Telemetry instance.
type Config struct {
	// Namespace is the metrics namespace (default: "meteo").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// TracerName is the name of the tracer (default: "meteo").
	TracerName string

	// TracerProvider supplies the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// Tracing enables spans. Metrics are always recorded.
	Tracing bool
}

// Option configures a Telemetry instance.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracing enables spans using the named tracer from provider. A nil
// provider means the global one.
func WithTracing(tracerName string, provider trace.TracerProvider) Option {
	return func(c *Config) {
		c.Tracing = true
		if tracerName != "" {
			c.TracerName = tracerName
		}
		c.TracerProvider = provider
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "meteo",
		Buckets:    prometheus.DefBuckets,
		Registry:   prometheus.DefaultRegisterer,
		TracerName: "meteo",
	}
}

// Telemetry records navigation and component load metrics and spans.
// It is safe for concurrent use.
type Telemetry struct {
	navigations     *prometheus.CounterVec
	navDuration     *prometheus.HistogramVec
	redirects       prometheus.Counter
	loads           *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	liveConnections prometheus.Gauge
	wsErrors        *prometheus.CounterVec

	tracer trace.Tracer
}

// New creates a Telemetry instance and registers its metrics.
// Registering twice on the same registry panics, as promauto does.
func New(opts ...Option) *Telemetry {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	t := &Telemetry{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigations by route and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		navDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration in seconds, including component loads",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		redirects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "redirects_total",
			Help:        "Total number of redirects followed by committed navigations",
			ConstLabels: config.ConstLabels,
		}),

		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "component_loads_total",
			Help:        "Total number of component fetches by route and result",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "result"}),

		loadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "component_load_duration_seconds",
			Help:        "Component fetch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "component_cache_hits_total",
			Help:        "Total number of activations served by an already loaded component",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_connections",
			Help:        "Number of open live navigation connections",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total live navigation errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}

	if config.Tracing {
		provider := config.TracerProvider
		if provider == nil {
			provider = otel.GetTracerProvider()
		}
		t.tracer = provider.Tracer(config.TracerName)
	}
	return t
}

// spanKey marks spans started by Telemetry so Finished never ends a span it
// does not own.
type spanKey struct{}

func (t *Telemetry) start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) context.Context {
	if t.tracer == nil {
		return ctx
	}
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, spanKey{}, span)
}

func finish(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NavigationStarted implements navigation.Observer.
func (t *Telemetry) NavigationStarted(ctx context.Context, id, path string) context.Context {
	return t.start(ctx, "meteo.navigate", trace.SpanKindInternal,
		attribute.String("meteo.navigation_id", id),
		attribute.String("meteo.path", path),
	)
}

// NavigationFinished implements navigation.Observer.
func (t *Telemetry) NavigationFinished(ctx context.Context, res *navigation.Result, elapsed time.Duration, err error) {
	outcome := Outcome(res, err)
	route := unknownRoute
	var attrs []attribute.KeyValue
	if res != nil {
		route = res.Route.Key()
		attrs = append(attrs,
			attribute.String("meteo.route", route),
			attribute.String("meteo.title", res.Title),
			attribute.Int("meteo.redirects", res.Redirects),
		)
		if res.Redirects > 0 {
			t.redirects.Add(float64(res.Redirects))
		}
	}
	attrs = append(attrs, attribute.String("meteo.outcome", outcome))

	t.navigations.WithLabelValues(route, outcome).Inc()
	t.navDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	// Superseded and canceled navigations are not failures of the span.
	if outcome == OutcomeSuperseded || outcome == OutcomeCanceled {
		err = nil
	}
	finish(ctx, err, attrs...)
}

// LoadStarted implements component.Observer.
func (t *Telemetry) LoadStarted(ctx context.Context, key string) context.Context {
	return t.start(ctx, "meteo.component.load", trace.SpanKindClient,
		attribute.String("meteo.route", key),
	)
}

// LoadFinished implements component.Observer.
func (t *Telemetry) LoadFinished(ctx context.Context, key string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	t.loads.WithLabelValues(key, result).Inc()
	t.loadDuration.WithLabelValues(key).Observe(elapsed.Seconds())
	finish(ctx, err)
}

// CacheHit implements component.Observer.
func (t *Telemetry) CacheHit(key string) {
	t.cacheHits.WithLabelValues(key).Inc()
}

// ConnectionOpened records a live navigation connection.
func (t *Telemetry) ConnectionOpened() {
	t.liveConnections.Inc()
}

// ConnectionClosed records the end of a live navigation connection.
func (t *Telemetry) ConnectionClosed() {
	t.liveConnections.Dec()
}

// WebSocketError records a live navigation error. errorType should come
// from a small fixed set such as "read", "write" or "rate_limit".
func (t *Telemetry) WebSocketError(errorType string) {
	t.wsErrors.WithLabelValues(errorType).Inc()
}

// Outcome classifies a finished navigation for labels.
func Outcome(res *navigation.Result, err error) string {
	switch {
	case err == nil && res != nil && res.Redirected():
		return OutcomeRedirected
	case err == nil:
		return OutcomeOK
	case errors.Is(err, navigation.ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
