// Package metrics defines the Prometheus collectors for queries, handlers and indexer runs.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "yobidashi"

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal     *prometheus.CounterVec
	QueryDuration    prometheus.Histogram
	QueryResults     prometheus.Histogram
	HandlerDuration  *prometheus.HistogramVec
	HandlerFailures  *prometheus.CounterVec
	IndexRunsTotal   *prometheus.CounterVec
	IndexRunDuration *prometheus.HistogramVec
	IndexedItems     *prometheus.GaugeVec
	SkippedEntries   *prometheus.CounterVec
	ActivationsTotal *prometheus.CounterVec
}

// New creates all collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Query sessions by outcome (finished, invalidated).",
			},
			[]string{"outcome"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Time from session creation until every handler returned.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		QueryResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_results_count",
				Help:      "Number of results in finished sessions.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Wall-clock runtime of one handler for one query.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"handler"},
		),
		HandlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_failures_total",
				Help:      "Handler failures by kind (error, panic).",
			},
			[]string{"handler", "kind"},
		),
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indexer",
				Name:      "runs_total",
				Help:      "Indexer runs by result (installed, aborted, failed).",
			},
			[]string{"provider", "result"},
		),
		IndexRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "indexer",
				Name:      "run_duration_seconds",
				Help:      "Duration of indexer runs.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"provider"},
		),
		IndexedItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "indexer",
				Name:      "items",
				Help:      "Items in the installed snapshot.",
			},
			[]string{"provider"},
		),
		SkippedEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "indexer",
				Name:      "skipped_entries_total",
				Help:      "Source entries skipped because they could not be read or parsed.",
			},
			[]string{"provider"},
		),
		ActivationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activations_total",
				Help:      "Activated items by provider.",
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.QueryResults,
		m.HandlerDuration,
		m.HandlerFailures,
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.IndexedItems,
		m.SkippedEntries,
		m.ActivationsTotal,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// QueryFinished records a completed session.
func (m *Metrics) QueryFinished(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues("finished").Inc()
	m.QueryDuration.Observe(d.Seconds())
	m.QueryResults.Observe(float64(results))
}

// QueryInvalidated records a session discarded before it finished.
func (m *Metrics) QueryInvalidated() {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues("invalidated").Inc()
}

// HandlerRan records one handler's runtime.
func (m *Metrics) HandlerRan(handler string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(handler).Observe(d.Seconds())
}

// HandlerFailed counts a handler failure of the given kind.
func (m *Metrics) HandlerFailed(handler, kind string) {
	if m == nil {
		return
	}
	m.HandlerFailures.WithLabelValues(handler, kind).Inc()
}

// IndexRun records the outcome of one indexer run. items is only applied to the gauge
// when the run installed its snapshot.
func (m *Metrics) IndexRun(provider, result string, items int, d time.Duration) {
	if m == nil {
		return
	}
	m.IndexRunsTotal.WithLabelValues(provider, result).Inc()
	m.IndexRunDuration.WithLabelValues(provider).Observe(d.Seconds())
	if result == "installed" {
		m.IndexedItems.WithLabelValues(provider).Set(float64(items))
	}
}

// EntrySkipped counts an unreadable source entry.
func (m *Metrics) EntrySkipped(provider string) {
	if m == nil {
		return
	}
	m.SkippedEntries.WithLabelValues(provider).Inc()
}

// Activated counts an item activation.
func (m *Metrics) Activated(provider string) {
	if m == nil {
		return
	}
	m.ActivationsTotal.WithLabelValues(provider).Inc()
}

// WriteSummary writes one line per non-empty series in a human-readable form.
func (m *Metrics) WriteSummary(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), namespace+"_")
		for _, metric := range mf.GetMetric() {
			value, ok := summarize(mf.GetType(), metric)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(w, "%-40s %s\n", name+labelString(metric.GetLabel()), value); err != nil {
				return err
			}
		}
	}
	return nil
}

func summarize(t dto.MetricType, metric *dto.Metric) (string, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		v := metric.GetCounter().GetValue()
		return fmt.Sprintf("%g", v), v != 0
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", metric.GetGauge().GetValue()), true
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		n := h.GetSampleCount()
		if n == 0 {
			return "", false
		}
		return fmt.Sprintf("count=%d avg=%.4g", n, h.GetSampleSum()/float64(n)), true
	default:
		return "", false
	}
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
