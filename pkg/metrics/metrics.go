// Package metrics defines the Prometheus collectors of an indexing run. A run
// is a batch job, so the collectors live on their own registry which is either
// written to a node_exporter textfile when the run ends or served over HTTP.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for docindex.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal     *prometheus.CounterVec
	TokensTotal    prometheus.Counter
	ArtifactsTotal *prometheus.CounterVec
	PhaseDuration  *prometheus.GaugeVec
	TrieEdges      prometheus.Gauge
	RunsTotal      *prometheus.CounterVec
	LastRunSuccess prometheus.Gauge
	NotifyTotal    *prometheus.CounterVec
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_files_total",
				Help: "HTML files processed by status (indexed, skipped).",
			},
			[]string{"status"},
		),
		TokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docindex_tokens_total",
				Help: "Token occurrences recorded in the URL index.",
			},
		),
		ArtifactsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_artifacts_total",
				Help: "Artifact files by kind (fragment, token, trie) and status (written, failed).",
			},
			[]string{"kind", "status"},
		),
		PhaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docindex_phase_duration_seconds",
				Help: "Wall time of each phase of the last run.",
			},
			[]string{"phase"},
		),
		TrieEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docindex_trie_edges",
				Help: "Number of edges in the encoded trie.",
			},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_runs_total",
				Help: "Indexing runs by outcome (ok, partial, failed).",
			},
			[]string{"outcome"},
		),
		LastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docindex_last_run_success_timestamp_seconds",
				Help: "Unix time of the last run that completed without a fatal error.",
			},
		),
		NotifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_notifications_total",
				Help: "Run summaries published by sink and status.",
			},
			[]string{"sink", "status"},
		),
	}

	m.registry.MustRegister(
		m.FilesTotal,
		m.TokensTotal,
		m.ArtifactsTotal,
		m.PhaseDuration,
		m.TrieEdges,
		m.RunsTotal,
		m.LastRunSuccess,
		m.NotifyTotal,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The helpers below are safe to call on a nil *Metrics so that callers can
// run without metrics.

func (m *Metrics) FileIndexed() {
	if m != nil {
		m.FilesTotal.WithLabelValues("indexed").Inc()
	}
}

func (m *Metrics) FileSkipped() {
	if m != nil {
		m.FilesTotal.WithLabelValues("skipped").Inc()
	}
}

func (m *Metrics) Tokens(n int) {
	if m != nil {
		m.TokensTotal.Add(float64(n))
	}
}

func (m *Metrics) Artifact(kind string, err error) {
	if m == nil {
		return
	}
	status := "written"
	if err != nil {
		status = "failed"
	}
	m.ArtifactsTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) Phase(name string, d time.Duration) {
	if m != nil {
		m.PhaseDuration.WithLabelValues(name).Set(d.Seconds())
	}
}

func (m *Metrics) Edges(n int) {
	if m != nil {
		m.TrieEdges.Set(float64(n))
	}
}

func (m *Metrics) Run(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if outcome != "failed" {
		m.LastRunSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) Notify(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.NotifyTotal.WithLabelValues(sink, status).Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Handler returns the Prometheus scrape HTTP handler for m.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
