package navigation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	merrors "github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/component"
	"github.com/nasa-meteo/dashboard/pkg/router"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type view struct{ name string }

func (v *view) Render(w io.Writer, data component.ViewData) error {
	_, err := io.WriteString(w, v.name+":"+data.Title)
	return err
}

type titleRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *titleRecorder) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *titleRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

type fixture struct {
	nav   *Navigator
	calls map[string]*atomic.Int32
	gates map[string]chan struct{}
	fail  map[string]error
	mu    sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table, err := router.NewTable(
		router.Route{
			Path:      "/",
			Name:      "tableaudebord",
			Component: "@/views/tableaudebord.html",
			Meta:      router.Meta{router.MetaTitle: "Tableau de bord | NASA Météo", router.MetaTransition: "fade"},
		},
		router.Route{Path: "/apropos", Name: "apropos", Component: "@/views/apropos.html"},
		router.Route{Path: "/*pathMatch", Redirect: "/"},
	)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		calls: map[string]*atomic.Int32{"tableaudebord": {}, "apropos": {}},
		gates: map[string]chan struct{}{},
		fail:  map[string]error{},
	}
	cache := component.NewCache(component.LoaderFunc(func(ctx context.Context, r *router.Route) (component.Component, error) {
		f.calls[r.Name].Add(1)
		f.mu.Lock()
		gate, failErr := f.gates[r.Name], f.fail[r.Name]
		delete(f.fail, r.Name)
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if failErr != nil {
			return nil, failErr
		}
		return &view{name: r.Name}, nil
	}))
	f.nav = NewNavigator(table, cache)
	t.Cleanup(cache.Wait)
	return f
}

func (f *fixture) gate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[name] = ch
	return ch
}

func TestNavigateUnknownPathRedirectsToDashboard(t *testing.T) {
	f := newFixture(t)
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	res, err := tab.Navigate(context.Background(), "/foo/bar")
	if err != nil {
		t.Fatal(err)
	}

	if res.Route.Name != "tableaudebord" {
		t.Errorf("route = %q, want tableaudebord", res.Route.Name)
	}
	if !res.Redirected() || res.RedirectedFrom != "/foo/bar" || res.Redirects != 1 {
		t.Errorf("redirect info = %q/%d", res.RedirectedFrom, res.Redirects)
	}
	if res.Path != "/" {
		t.Errorf("Path = %q, want /", res.Path)
	}
	if got := titles.all(); len(got) != 1 || got[0] != "Tableau de bord | NASA Météo" {
		t.Errorf("titles = %q", got)
	}
	if tab.Title() != "Tableau de bord | NASA Météo" {
		t.Errorf("Title() = %q", tab.Title())
	}
	if tab.CurrentRoute() != res.Route {
		t.Error("CurrentRoute() should be the committed route")
	}
}

func TestNavigateRootDirectly(t *testing.T) {
	f := newFixture(t)
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	if tab.CurrentRoute() != nil || tab.Title() != "" {
		t.Fatal("fresh context should have no route and no title")
	}

	res, err := tab.Navigate(context.Background(), "/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Redirected() || res.RedirectedFrom != "" {
		t.Errorf("unexpected redirect from %q", res.RedirectedFrom)
	}
	if res.Transition != "fade" {
		t.Errorf("Transition = %q", res.Transition)
	}
	if f.calls["tableaudebord"].Load() != 1 {
		t.Errorf("dashboard loaded %d times", f.calls["tableaudebord"].Load())
	}
	if got := titles.all(); len(got) != 1 || got[0] != "Tableau de bord | NASA Météo" {
		t.Errorf("titles = %q", got)
	}

	var sb strings.Builder
	if err := res.Render(&sb, nil); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "tableaudebord:Tableau de bord | NASA Météo" {
		t.Errorf("Render() = %q", sb.String())
	}
}

func TestNavigateFallbackTitle(t *testing.T) {
	f := newFixture(t)
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	res, err := tab.Navigate(context.Background(), "/apropos?x=1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != FallbackTitle || tab.Title() != "NASA Dashboard" {
		t.Errorf("title = %q, want fallback", res.Title)
	}
	if res.FullPath() != "/apropos?x=1" {
		t.Errorf("FullPath() = %q", res.FullPath())
	}
	if got := titles.all(); len(got) != 1 || got[0] != FallbackTitle {
		t.Errorf("titles = %q", got)
	}
}

func TestNavigateLoadsComponentOnce(t *testing.T) {
	f := newFixture(t)
	tab := f.nav.NewContext(nil)

	for _, p := range []string{"/", "/foo", "/", "/x/y/z"} {
		if _, err := tab.Navigate(context.Background(), p); err != nil {
			t.Fatalf("Navigate(%q): %v", p, err)
		}
	}
	if n := f.calls["tableaudebord"].Load(); n != 1 {
		t.Errorf("dashboard fetched %d times, want 1", n)
	}

	// A second context shares the cache.
	other := f.nav.NewContext(nil)
	if _, err := other.Navigate(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}
	if n := f.calls["tableaudebord"].Load(); n != 1 {
		t.Errorf("dashboard fetched %d times across contexts, want 1", n)
	}
}

func TestTitleSetOnlyAfterLoadCompletes(t *testing.T) {
	f := newFixture(t)
	gate := f.gate("tableaudebord")
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	done := make(chan error, 1)
	go func() {
		_, err := tab.Navigate(context.Background(), "/")
		done <- err
	}()

	waitForState(t, f.nav.Cache(), "tableaudebord", component.Loading)
	if got := titles.all(); len(got) != 0 {
		t.Fatalf("title set before load completed: %q", got)
	}
	if tab.CurrentRoute() != nil {
		t.Fatal("route committed before load completed")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := titles.all(); len(got) != 1 {
		t.Errorf("titles = %q", got)
	}
}

func TestNavigateLoadFailure(t *testing.T) {
	f := newFixture(t)
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	if _, err := tab.Navigate(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("fetch failed")
	f.fail["apropos"] = boom
	res, err := tab.Navigate(context.Background(), "/apropos")
	if res != nil {
		t.Error("failed navigation returned a result")
	}
	if !errors.Is(err, boom) || !merrors.HasCode(err, "E151") {
		t.Fatalf("err = %v", err)
	}
	if tab.CurrentRoute().Name != "tableaudebord" {
		t.Errorf("current route changed to %q after failure", tab.CurrentRoute().Name)
	}
	if got := titles.all(); len(got) != 1 {
		t.Errorf("title changed after failure: %q", got)
	}

	// The next activation retries.
	if _, err := tab.Navigate(context.Background(), "/apropos"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := f.calls["apropos"].Load(); n != 2 {
		t.Errorf("apropos fetched %d times, want 2", n)
	}
}

func TestNavigateSuperseded(t *testing.T) {
	f := newFixture(t)
	gate := f.gate("apropos")
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	slow := make(chan error, 1)
	go func() {
		_, err := tab.Navigate(context.Background(), "/apropos")
		slow <- err
	}()
	waitForState(t, f.nav.Cache(), "apropos", component.Loading)

	if _, err := tab.Navigate(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}

	close(gate)
	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("slow navigation err = %v, want ErrSuperseded", err)
	}

	if tab.CurrentRoute().Name != "tableaudebord" {
		t.Errorf("current = %q, stale navigation must not commit", tab.CurrentRoute().Name)
	}
	if got := titles.all(); len(got) != 1 || got[0] != "Tableau de bord | NASA Météo" {
		t.Errorf("titles = %q", got)
	}
	if got := f.nav.Cache().State("apropos"); got != component.Loaded {
		t.Errorf("stale load should still be cached, state = %v", got)
	}
}

func TestGoOrdersByCallTime(t *testing.T) {
	f := newFixture(t)
	gate := f.gate("apropos")
	titles := &titleRecorder{}
	tab := f.nav.NewContext(titles)

	type outcome struct {
		res *Result
		err error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	tab.Go(context.Background(), "/apropos", func(res *Result, err error) { first <- outcome{res, err} })
	tab.Go(context.Background(), "/", func(res *Result, err error) { second <- outcome{res, err} })

	got := <-second
	if got.err != nil || got.res.Route.Name != "tableaudebord" {
		t.Fatalf("second navigation = %v, %v", got.res, got.err)
	}
	close(gate)
	if got := <-first; !errors.Is(got.err, ErrSuperseded) {
		t.Fatalf("first navigation err = %v, want ErrSuperseded", got.err)
	}

	if tab.CurrentRoute().Name != "tableaudebord" {
		t.Errorf("current = %q", tab.CurrentRoute().Name)
	}
	if got := titles.all(); len(got) != 1 {
		t.Errorf("titles = %q, want one title", got)
	}
}

func TestNavigateCancelledContext(t *testing.T) {
	f := newFixture(t)
	gate := f.gate("tableaudebord")
	tab := f.nav.NewContext(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tab.Navigate(ctx, "/")
		done <- err
	}()
	waitForState(t, f.nav.Cache(), "tableaudebord", component.Loading)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	close(gate)
	f.nav.Cache().Wait()
	if tab.CurrentRoute() != nil {
		t.Error("cancelled navigation committed")
	}
}

func TestAfterEachHooks(t *testing.T) {
	f := newFixture(t)
	tab := f.nav.NewContext(nil)

	type call struct{ to, from string }
	var calls []call
	tab.AfterEach(func(to, from *Result) {
		c := call{to: to.Route.Key()}
		if from != nil {
			c.from = from.Route.Key()
		}
		calls = append(calls, c)
	})

	for _, p := range []string{"/", "/apropos", "/nowhere"} {
		if _, err := tab.Navigate(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}

	want := []call{{"tableaudebord", ""}, {"apropos", "tableaudebord"}, {"tableaudebord", "apropos"}}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestHookReadsContextWhileNextNavigationCommits(t *testing.T) {
	f := newFixture(t)
	tab := f.nav.NewContext(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	seen := make(chan string, 2)
	var (
		mu    sync.Mutex
		order []string
	)
	tab.AfterEach(func(to, _ *Result) {
		if to.Route.Name == "apropos" {
			close(entered)
			<-release
		}
		seen <- tab.CurrentRoute().Name
		mu.Lock()
		order = append(order, to.Route.Name)
		mu.Unlock()
	})

	first := make(chan error, 1)
	go func() {
		_, err := tab.Navigate(context.Background(), "/apropos")
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		_, err := tab.Navigate(context.Background(), "/")
		second <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if r := tab.CurrentRoute(); r != nil && r.Name == "tableaudebord" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second navigation did not commit while the first hook ran")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	for name, ch := range map[string]chan error{"first": first, "second": second} {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("%s navigation: %v", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s navigation blocked: hook could not read its context", name)
		}
	}

	for i := 0; i < 2; i++ {
		if got := <-seen; got != "tableaudebord" {
			t.Errorf("hook %d saw current route %q, want tableaudebord", i, got)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "apropos" || order[1] != "tableaudebord" {
		t.Errorf("hooks ran in order %v, want commit order [apropos tableaudebord]", order)
	}
}

func TestObserver(t *testing.T) {
	table, err := router.NewTable(
		router.Route{Path: "/", Name: "home", Component: "home"},
		router.Route{Path: "/*pathMatch", Redirect: "/"},
	)
	if err != nil {
		t.Fatal(err)
	}
	cache := component.NewCache(component.LoaderFunc(func(context.Context, *router.Route) (component.Component, error) {
		return &view{name: "home"}, nil
	}))
	obs := &recordingObserver{}
	nav := NewNavigator(table, cache, WithObserver(obs), WithMaxRedirects(3))

	if _, err := nav.NewContext(nil).Navigate(context.Background(), "/x"); err != nil {
		t.Fatal(err)
	}
	if obs.started != 1 || obs.finished != 1 || obs.lastPath != "/x" || obs.lastRoute != "home" {
		t.Errorf("observer = %+v", obs)
	}
	if nav.Table() != table {
		t.Error("Table() mismatch")
	}
}

func TestFollow(t *testing.T) {
	f := newFixture(t)

	target, err := f.nav.Follow("/a/b?c=d")
	if err != nil {
		t.Fatal(err)
	}
	if target.Resolution.Route.Name != "tableaudebord" || target.RedirectedFrom != "/a/b?c=d" {
		t.Errorf("target = %+v", target)
	}
	if target.Resolution.Query != "" {
		t.Errorf("redirect carried query %q", target.Resolution.Query)
	}

	target, err = f.nav.Follow("/apropos")
	if err != nil || target.Redirects != 0 {
		t.Errorf("Follow(/apropos) = %+v, %v", target, err)
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	started   int
	finished  int
	lastPath  string
	lastRoute string
}

func (o *recordingObserver) NavigationStarted(ctx context.Context, _, path string) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
	o.lastPath = path
	return ctx
}

func (o *recordingObserver) NavigationFinished(_ context.Context, res *Result, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	if res != nil {
		o.lastRoute = res.Route.Key()
	}
}

func waitForState(t *testing.T, c *component.Cache, key string, want component.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State(key) != want {
		if time.Now().After(deadline) {
			t.Fatalf("state of %s never reached %v", key, want)
		}
		time.Sleep(time.Millisecond)
	}
}
