package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nasa-meteo/dashboard/pkg/navigation"
	"github.com/nasa-meteo/dashboard/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingProvider hands out spans that remember how they ended.
type recordingProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

func (p *recordingProvider) ended() []*recordingSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*recordingSpan
	for _, s := range p.spans {
		if s.ended {
			out = append(out, s)
		}
	}
	return out
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: cfg.Attributes()}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, s)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span

	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) SetStatus(c codes.Code, _ string)       { s.status = c }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func home() *router.Route {
	return &router.Route{Path: "/", Name: "tableaudebord", Component: "@/views/tableaudebord.html"}
}

func TestNavigationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := New(WithRegistry(reg), WithNamespace("test"))
	ctx := context.Background()

	ok := &navigation.Result{Route: home(), Title: "Tableau de bord | NASA Météo"}
	tel.NavigationFinished(tel.NavigationStarted(ctx, "a", "/"), ok, time.Millisecond, nil)

	redirected := &navigation.Result{Route: home(), Redirects: 1, RedirectedFrom: "/x"}
	tel.NavigationFinished(tel.NavigationStarted(ctx, "b", "/x"), redirected, time.Millisecond, nil)

	tel.NavigationFinished(ctx, nil, time.Millisecond, navigation.ErrSuperseded)
	tel.NavigationFinished(ctx, nil, time.Millisecond, errors.New("boom"))

	tests := []struct {
		route, outcome string
		want           float64
	}{
		{"tableaudebord", OutcomeOK, 1},
		{"tableaudebord", OutcomeRedirected, 1},
		{unknownRoute, OutcomeSuperseded, 1},
		{unknownRoute, OutcomeError, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(tel.navigations.WithLabelValues(tt.route, tt.outcome))
		if got != tt.want {
			t.Errorf("navigations{%s,%s} = %v, want %v", tt.route, tt.outcome, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(tel.redirects); got != 1 {
		t.Errorf("redirects = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(tel.navDuration); n != 4 {
		t.Errorf("navigation duration series = %d, want 4", n)
	}
}

func TestComponentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := New(WithRegistry(reg))
	ctx := context.Background()

	tel.LoadFinished(tel.LoadStarted(ctx, "tableaudebord"), "tableaudebord", 5*time.Millisecond, nil)
	tel.LoadFinished(tel.LoadStarted(ctx, "tableaudebord"), "tableaudebord", 5*time.Millisecond, errors.New("fetch"))
	tel.CacheHit("tableaudebord")
	tel.CacheHit("tableaudebord")

	if got := testutil.ToFloat64(tel.loads.WithLabelValues("tableaudebord", "ok")); got != 1 {
		t.Errorf("loads{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(tel.loads.WithLabelValues("tableaudebord", "error")); got != 1 {
		t.Errorf("loads{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(tel.cacheHits.WithLabelValues("tableaudebord")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
}

func TestConnectionGauge(t *testing.T) {
	tel := New(WithRegistry(prometheus.NewRegistry()))

	tel.ConnectionOpened()
	tel.ConnectionOpened()
	tel.ConnectionClosed()
	tel.WebSocketError("read")

	if got := testutil.ToFloat64(tel.liveConnections); got != 1 {
		t.Errorf("live connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(tel.wsErrors.WithLabelValues("read")); got != 1 {
		t.Errorf("websocket errors = %v, want 1", got)
	}
}

func TestNavigationSpans(t *testing.T) {
	tp := &recordingProvider{}
	tel := New(WithRegistry(prometheus.NewRegistry()), WithTracing("test", tp))
	ctx := context.Background()

	navCtx := tel.NavigationStarted(ctx, "id-1", "/")
	loadCtx := tel.LoadStarted(context.WithoutCancel(navCtx), "tableaudebord")
	tel.LoadFinished(loadCtx, "tableaudebord", time.Millisecond, nil)
	tel.NavigationFinished(navCtx, &navigation.Result{Route: home(), Title: "T"}, time.Millisecond, nil)

	supCtx := tel.NavigationStarted(ctx, "id-2", "/")
	tel.NavigationFinished(supCtx, nil, time.Millisecond, navigation.ErrSuperseded)

	failCtx := tel.NavigationStarted(ctx, "id-3", "/")
	tel.NavigationFinished(failCtx, nil, time.Millisecond, errors.New("load failed"))

	spans := tp.ended()
	if len(spans) != 4 {
		t.Fatalf("ended spans = %d, want 4", len(spans))
	}

	load, nav := spans[0], spans[1]
	if load.name != "meteo.component.load" || load.status != codes.Ok {
		t.Errorf("load span = %s/%v", load.name, load.status)
	}
	if nav.name != "meteo.navigate" || nav.status != codes.Ok {
		t.Errorf("navigation span = %s/%v", nav.name, nav.status)
	}
	if v, ok := nav.attr("meteo.route"); !ok || v.AsString() != "tableaudebord" {
		t.Errorf("meteo.route = %v, %v", v, ok)
	}

	if spans[2].status != codes.Ok || len(spans[2].errs) != 0 {
		t.Errorf("superseded span status = %v, errs = %v", spans[2].status, spans[2].errs)
	}
	if v, _ := spans[2].attr("meteo.outcome"); v.AsString() != OutcomeSuperseded {
		t.Errorf("superseded outcome attr = %q", v.AsString())
	}
	if spans[3].status != codes.Error || len(spans[3].errs) != 1 {
		t.Errorf("failed span status = %v, errs = %v", spans[3].status, spans[3].errs)
	}
}

func TestFinishIgnoresForeignSpans(t *testing.T) {
	tp := &recordingProvider{}
	_, parent := recordingTracer{p: tp}.Start(context.Background(), "request")
	ctx := trace.ContextWithSpan(context.Background(), parent)

	// Tracing disabled: the request span must stay open.
	tel := New(WithRegistry(prometheus.NewRegistry()))
	tel.NavigationFinished(tel.NavigationStarted(ctx, "id", "/"), nil, 0, errors.New("x"))

	if len(tp.ended()) != 0 {
		t.Fatal("telemetry ended a span it did not start")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		res  *navigation.Result
		err  error
		want string
	}{
		{"ok", &navigation.Result{Route: home()}, nil, OutcomeOK},
		{"redirected", &navigation.Result{Route: home(), Redirects: 2}, nil, OutcomeRedirected},
		{"superseded", nil, navigation.ErrSuperseded, OutcomeSuperseded},
		{"canceled", nil, context.Canceled, OutcomeCanceled},
		{"error", nil, errors.New("x"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.res, tt.err); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}
