// Package metrics holds the per-run Prometheus metrics of backupwatch.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name.
const PushJob = "backupwatch"

// Reasons a (task, schedule) pair is skipped.
const (
	ReasonUnsupportedBase = "unsupported_base"
	ReasonNoWeekdays      = "no_weekdays"
	ReasonInvalidCount    = "invalid_count"
	ReasonNoDefinition    = "no_definition"
	ReasonCanceled        = "canceled"
)

// Metrics is one registry and the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	AlertsTotal   *prometheus.CounterVec
	PairsAnalyzed prometheus.Counter
	PairsSkipped  *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
}

// New creates a fresh registry with all backupwatch collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backupwatch_alerts_total",
				Help: "Alerts dispatched to the alerting backend",
			},
			[]string{"kind"},
		),
		PairsAnalyzed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backupwatch_pairs_analyzed_total",
				Help: "Task and schedule pairs walked by the window matcher",
			},
		),
		PairsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backupwatch_pairs_skipped_total",
				Help: "Task and schedule pairs skipped before matching",
			},
			[]string{"reason"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backupwatch_run_duration_seconds",
				Help:    "Wall time of one analysis run",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~3min
			},
			[]string{"analysis"},
		),
	}
}

// ObserveAlerts counts dispatched alerts of one kind.
func (m *Metrics) ObserveAlerts(kind schema.AlertKind, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertsTotal.WithLabelValues(string(kind)).Add(float64(n))
}

// ObservePair counts one analyzed pair.
func (m *Metrics) ObservePair() {
	if m == nil {
		return
	}
	m.PairsAnalyzed.Inc()
}

// ObserveSkip counts one skipped pair.
func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.PairsSkipped.WithLabelValues(reason).Inc()
}

// ObserveRun records the duration of an analysis run.
func (m *Metrics) ObserveRun(analysis schema.AnalysisName, d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(string(analysis)).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Push sends the registry to a Pushgateway.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, PushJob).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// Flush writes and pushes the metrics to whichever destinations are configured.
func (m *Metrics) Flush(ctx context.Context, textfile, pushURL string) error {
	if m == nil {
		return nil
	}
	if textfile != "" {
		if err := m.WriteTextfile(textfile); err != nil {
			return err
		}
	}
	if pushURL != "" {
		if err := m.Push(ctx, pushURL); err != nil {
			return err
		}
	}
	return nil
}
