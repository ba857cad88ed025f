package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "hallcrawl"

// Metrics tracks crawl counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	visits         *prometheus.CounterVec
	visitsSkipped  *prometheus.CounterVec
	visitsRefused  prometheus.Counter
	controls       *prometheus.CounterVec
	documentsStore prometheus.Counter
	documentsDrop  prometheus.Counter
	abilities      prometheus.Gauge
	queueDepth     prometheus.Gauge

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_total",
			Help:      "Completed page visits by category.",
		}, []string{"category"}),
		visitsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_skipped_total",
			Help:      "Page visits that failed, by failing stage.",
		}, []string{"stage"}),
		visitsRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_refused_total",
			Help:      "Queued URLs refused because the visit budget was exhausted.",
		}),
		controls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "controls_total",
			Help:      "Reveal controls handled, by status and skip reason.",
		}, []string{"status", "reason"}),
		documentsStore: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_stored_total",
			Help:      "Documents written to the sink.",
		}),
		documentsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_dropped_total",
			Help:      "Documents dropped by the pipeline.",
		}),
		abilities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "abilities",
			Help:      "Distinct consolidated abilities.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "URLs waiting in the frontier.",
		}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.visits,
		m.visitsSkipped,
		m.visitsRefused,
		m.controls,
		m.documentsStore,
		m.documentsDrop,
		m.abilities,
		m.queueDepth,
		collectors.NewGoCollector(),
	)
	return m
}

// VisitRecorded counts a completed visit.
func (m *Metrics) VisitRecorded(category string) {
	if m == nil {
		return
	}
	m.visits.WithLabelValues(category).Inc()
}

// VisitSkipped counts a failed visit.
func (m *Metrics) VisitSkipped(stage string) {
	if m == nil {
		return
	}
	m.visitsSkipped.WithLabelValues(stage).Inc()
}

// VisitRefused counts a URL refused by the budget.
func (m *Metrics) VisitRefused() {
	if m == nil {
		return
	}
	m.visitsRefused.Inc()
}

// Control counts one reveal control outcome. reason is empty for revealed controls.
func (m *Metrics) Control(status, reason string) {
	if m == nil {
		return
	}
	m.controls.WithLabelValues(status, reason).Inc()
}

// DocumentsStored counts documents written to the sink.
func (m *Metrics) DocumentsStored(n int) {
	if m == nil {
		return
	}
	m.documentsStore.Add(float64(n))
}

// DocumentDropped counts a document dropped by the pipeline.
func (m *Metrics) DocumentDropped() {
	if m == nil {
		return
	}
	m.documentsDrop.Inc()
}

// SetAbilities sets the consolidated ability gauge.
func (m *Metrics) SetAbilities(n int) {
	if m == nil {
		return
	}
	m.abilities.Set(float64(n))
}

// SetQueueDepth sets the frontier depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Handler returns the exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves the registry on port at path, plus /health, until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot sums every hallcrawl series by metric name.
func (m *Metrics) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}
	families, err := m.registry.Gather()
	if err != nil {
		m.logger.Warn("gather metrics", "error", err)
		return out
	}
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, namespace+"_") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			out[name] += value(mf.GetType(), metric)
		}
	}
	return out
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}
