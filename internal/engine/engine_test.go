package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/hallcrawl/internal/automation/automationtest"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Frontier Tests ---

func TestFrontierPushPop(t *testing.T) {
	f := NewFrontier()

	f.Push(&Request{URL: "https://example.com/page1", Priority: PriorityDiscovered})
	f.Push(&Request{URL: "https://example.com/page2", Priority: PrioritySeed})

	if f.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", f.Len())
	}

	got := f.TryPop()
	if got == nil || got.URL != "https://example.com/page2" {
		t.Fatalf("expected seed first, got %v", got)
	}
	got = f.TryPop()
	if got == nil || got.URL != "https://example.com/page1" {
		t.Fatalf("expected discovered page second, got %v", got)
	}
	if f.Len() != 0 {
		t.Errorf("expected empty frontier, got %d", f.Len())
	}
}

func TestFrontierFIFOWithinPriority(t *testing.T) {
	f := NewFrontier()
	for _, u := range []string{"a", "b", "c", "d"} {
		f.Push(&Request{URL: u, Priority: PriorityDiscovered})
	}

	var order []string
	for req := f.TryPop(); req != nil; req = f.TryPop() {
		order = append(order, req.URL)
	}
	if strings.Join(order, "") != "abcd" {
		t.Errorf("expected push order abcd, got %v", order)
	}
}

func TestFrontierTryPopEmpty(t *testing.T) {
	f := NewFrontier()
	got := f.TryPop()
	if got != nil {
		t.Errorf("expected nil from empty frontier, got %v", got)
	}
}

func TestFrontierClose(t *testing.T) {
	f := NewFrontier()
	f.Push(&Request{URL: "queued"})
	f.Close()

	if !f.IsClosed() {
		t.Error("expected frontier to be closed")
	}
	if f.Push(&Request{URL: "late"}) {
		t.Error("push after close should be refused")
	}
	if req := f.Pop(context.Background()); req == nil || req.URL != "queued" {
		t.Errorf("queued request should still pop after close, got %v", req)
	}
	if req := f.Pop(context.Background()); req != nil {
		t.Errorf("expected nil from closed empty frontier, got %v", req)
	}
}

func TestFrontierPopHonoursContext(t *testing.T) {
	f := NewFrontier()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if req := f.Pop(ctx); req != nil {
		t.Errorf("expected nil after deadline, got %v", req)
	}
}

// --- Deduplicator Tests ---

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(1000)

	if d.IsSeen("https://example.com") {
		t.Error("should not be seen before marking")
	}

	d.MarkSeen("https://example.com")

	if !d.IsSeen("https://example.com") {
		t.Error("should be seen after marking")
	}
}

func TestDeduplicatorTryMark(t *testing.T) {
	d := NewDeduplicator(10)

	if !d.TryMark("https://example.com/heroes/brok") {
		t.Error("first mark should succeed")
	}
	if d.TryMark("https://example.com/heroes/brok") {
		t.Error("second mark should fail")
	}
	if d.Count() != 1 {
		t.Errorf("expected 1 seen URL, got %d", d.Count())
	}
}

func TestDeduplicatorURLVariants(t *testing.T) {
	d := NewDeduplicator(1000)

	d.MarkSeen("https://Example.COM/Path?b=2&a=1")

	// Hostname case
	if !d.IsSeen("https://example.com/Path?b=2&a=1") {
		t.Error("hostname should be case-insensitive")
	}

	// Query param order
	if !d.IsSeen("https://example.com/Path?a=1&b=2") {
		t.Error("query params should be order-insensitive")
	}
}

// --- Stats Tests ---

func TestStatsSnapshot(t *testing.T) {
	s := &Stats{StartTime: time.Now()}
	s.VisitsDispatched.Add(42)
	s.VisitsCompleted.Add(40)
	s.VisitsFailed.Add(2)

	snap := s.Snapshot()
	if snap["visits_dispatched"].(int64) != 42 {
		t.Errorf("expected 42 visits_dispatched, got %v", snap["visits_dispatched"])
	}
	if snap["visits_failed"].(int64) != 2 {
		t.Errorf("expected 2 visits_failed, got %v", snap["visits_failed"])
	}
}

// --- Run Tests ---

const host = "https://hall.test"

type recordingHandler struct {
	mu       sync.Mutex
	visited  []string
	failures map[string]error
	links    map[string][]string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{failures: make(map[string]error), links: make(map[string][]string)}
}

func (h *recordingHandler) HandleVisit(_ context.Context, v *Visit) error {
	h.mu.Lock()
	h.visited = append(h.visited, v.URL)
	links := h.links[v.URL]
	h.mu.Unlock()

	if _, err := v.Page.Markup(); err != nil {
		return err
	}
	v.Enqueue(links...)
	return nil
}

func (h *recordingHandler) HandleFailure(url string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[url] = err
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{Concurrency: 2, MaxVisits: 100, NavigationTimeout: time.Second}
}

func TestRunVisitsDiscoveredPages(t *testing.T) {
	site := automationtest.NewSite()
	for _, p := range []string{"/heroes", "/heroes/brok", "/heroes/ada"} {
		site.Pages[host+p] = "<html><body>" + p + "</body></html>"
	}

	h := newRecordingHandler()
	h.links[host+"/heroes"] = []string{host + "/heroes/brok", host + "/heroes/ada", host + "/heroes/brok"}
	h.links[host+"/heroes/brok"] = []string{host + "/heroes"}

	e := New(testEngineConfig(), site, nil, testLogger())
	if err := e.AddSeed(host + "/heroes"); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background(), h); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(h.visited) != 3 {
		t.Errorf("expected 3 visits, got %v", h.visited)
	}
	if got := e.Stats().URLsFiltered.Load(); got != 2 {
		t.Errorf("expected 2 filtered duplicates, got %d", got)
	}
	if got := site.Opened(); got != 2 {
		t.Errorf("expected one page per worker, got %d", got)
	}
	if e.GetState() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.GetState())
	}
}

func TestRunRefusesOverBudget(t *testing.T) {
	site := automationtest.NewSite()
	h := newRecordingHandler()
	var seeds []string
	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		site.Pages[host+p] = "<html></html>"
		seeds = append(seeds, host+p)
	}

	cfg := testEngineConfig()
	cfg.Concurrency = 1
	cfg.MaxVisits = 2
	metrics := observability.NewMetrics(testLogger())
	e := New(cfg, site, metrics, testLogger())
	for _, s := range seeds {
		if err := e.AddSeed(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Run(context.Background(), h); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(h.visited) != 2 {
		t.Errorf("expected 2 visits, got %v", h.visited)
	}
	if got := e.Stats().VisitsRefused.Load(); got != 2 {
		t.Errorf("expected 2 refusals, got %d", got)
	}
	if got := metrics.Snapshot()["hallcrawl_visits_refused_total"]; got != 2 {
		t.Errorf("expected refused metric 2, got %v", got)
	}
	if strings.Join(site.Navigations(), ",") != host+"/a,"+host+"/b" {
		t.Errorf("seeds should be visited in order, got %v", site.Navigations())
	}
}

func TestRunRecoversFromFailures(t *testing.T) {
	site := automationtest.NewSite()
	site.Pages[host+"/ok"] = "<html></html>"
	site.Pages[host+"/boom"] = "<html></html>"
	site.Panics[host+"/boom"] = true

	h := newRecordingHandler()
	e := New(testEngineConfig(), site, nil, testLogger())
	for _, s := range []string{host + "/boom", host + "/missing", host + "/ok"} {
		if err := e.AddSeed(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Run(context.Background(), h); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var visitErr *types.VisitError
	if !errors.As(h.failures[host+"/boom"], &visitErr) || visitErr.Stage != "panic" {
		t.Errorf("expected panic visit error, got %v", h.failures[host+"/boom"])
	}
	if !errors.Is(h.failures[host+"/missing"], automationtest.ErrNotFound) {
		t.Errorf("expected not found, got %v", h.failures[host+"/missing"])
	}
	if len(h.visited) != 1 || h.visited[0] != host+"/ok" {
		t.Errorf("expected only /ok visited, got %v", h.visited)
	}
	if got := e.Stats().VisitsFailed.Load(); got != 2 {
		t.Errorf("expected 2 failures, got %d", got)
	}
}

func TestRunWithoutSeeds(t *testing.T) {
	e := New(testEngineConfig(), automationtest.NewSite(), nil, testLogger())
	if err := e.Run(context.Background(), newRecordingHandler()); !errors.Is(err, types.ErrNoSeeds) {
		t.Errorf("expected ErrNoSeeds, got %v", err)
	}
}

func TestAddSeedRejectsInvalidURL(t *testing.T) {
	e := New(testEngineConfig(), automationtest.NewSite(), nil, testLogger())
	if err := e.AddSeed("not a url"); err == nil {
		t.Error("expected invalid seed to be rejected")
	}
}

type stoppingHandler struct {
	*recordingHandler
	engine *Engine
}

func (h *stoppingHandler) HandleVisit(ctx context.Context, v *Visit) error {
	h.engine.Stop()
	return h.recordingHandler.HandleVisit(ctx, v)
}

func TestStopLeavesQueueUnvisited(t *testing.T) {
	site := automationtest.NewSite()
	for _, p := range []string{"/a", "/b", "/c"} {
		site.Pages[host+p] = "<html></html>"
	}

	cfg := testEngineConfig()
	cfg.Concurrency = 1
	e := New(cfg, site, nil, testLogger())
	for _, p := range []string{"/a", "/b", "/c"} {
		if err := e.AddSeed(host + p); err != nil {
			t.Fatal(err)
		}
	}
	h := &stoppingHandler{recordingHandler: newRecordingHandler(), engine: e}
	if err := e.Run(context.Background(), h); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if strings.Join(site.Navigations(), ",") != host+"/a" {
		t.Errorf("expected only the first seed navigated, got %v", site.Navigations())
	}
	if e.GetState() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.GetState())
	}
	if err := e.AddSeed(host + "/d"); !errors.Is(err, types.ErrCrawlStopped) {
		t.Errorf("expected ErrCrawlStopped after stop, got %v", err)
	}
}

func TestStopBeforeRun(t *testing.T) {
	e := New(testEngineConfig(), automationtest.NewSite(), nil, testLogger())
	if err := e.AddSeed(host + "/a"); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	if err := e.Run(context.Background(), newRecordingHandler()); !errors.Is(err, types.ErrCrawlStopped) {
		t.Errorf("expected ErrCrawlStopped, got %v", err)
	}
	if e.GetState() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.GetState())
	}
}

func TestAdmitReportsExhaustedBudget(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxVisits = 1
	e := New(cfg, automationtest.NewSite(), nil, testLogger())

	if err := e.admit(); err != nil {
		t.Fatalf("first visit should be admitted, got %v", err)
	}
	if err := e.admit(); !errors.Is(err, types.ErrBudgetExhausted) {
		t.Errorf("expected ErrBudgetExhausted, got %v", err)
	}
	if got := e.Stats().VisitsDispatched.Load(); got != 1 {
		t.Errorf("refused visits must not count as dispatched, got %d", got)
	}
}

// --- Benchmarks ---

func BenchmarkFrontierPushPop(b *testing.B) {
	f := NewFrontier()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Push(&Request{URL: "https://example.com/page", Priority: i % 2})
	}
	for i := 0; i < b.N; i++ {
		f.TryPop()
	}
}

func BenchmarkDeduplicator(b *testing.B) {
	d := NewDeduplicator(1_000_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		url := "https://example.com/page/" + string(rune(i%26+'a'))
		d.MarkSeen(url)
	}

	b.Run("lookup", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			url := "https://example.com/page/" + string(rune(i%26+'a'))
			d.IsSeen(url)
		}
	})
}
