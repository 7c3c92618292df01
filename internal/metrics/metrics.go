// Package metrics exports the outcome of the last run in the Prometheus
// text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"warren/internal/converge"
	"warren/internal/resource"
)

// RunMetrics holds the gauges describing one run. Each instance owns its
// registry, so only warren's series end up in the textfile.
type RunMetrics struct {
	registry *prometheus.Registry

	LastRunTimestamp prometheus.Gauge
	LastRunDuration  prometheus.Gauge
	LastRunSuccess   prometheus.Gauge
	Resources        *prometheus.GaugeVec
	CookieWipes      prometheus.Gauge
}

// New registers the run gauges on a fresh registry.
func New() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		registry: reg,
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "warren_last_run_timestamp_seconds",
			Help: "Unix time the last warren run finished.",
		}),
		LastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "warren_last_run_duration_seconds",
			Help: "Wall time of the last warren run.",
		}),
		LastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "warren_last_run_success",
			Help: "1 if the last run converged every resource, 0 otherwise.",
		}),
		Resources: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warren_last_run_resources",
			Help: "Resources in the last run, by outcome.",
		}, []string{"outcome"}),
		CookieWipes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "warren_last_run_database_wiped",
			Help: "1 if the last run wiped the broker database for a cookie change.",
		}),
	}
}

// Observe sets every gauge from report.
func (m *RunMetrics) Observe(report *converge.Report) {
	m.LastRunTimestamp.Set(float64(report.Finished.Unix()))
	m.LastRunDuration.Set(report.Finished.Sub(report.Started).Seconds())

	if report.Failed() {
		m.LastRunSuccess.Set(0)
	} else {
		m.LastRunSuccess.Set(1)
	}

	for _, t := range []converge.EventType{
		converge.EventUnchanged,
		converge.EventChanged,
		converge.EventWouldChange,
		converge.EventRefreshed,
		converge.EventFailed,
		converge.EventSkipped,
	} {
		m.Resources.WithLabelValues(string(t)).Set(float64(report.Count(t)))
	}

	wiped := 0.0
	for _, ev := range report.Events {
		if ev.Resource == resource.WipeID && ev.Type == converge.EventChanged {
			wiped = 1
		}
	}
	m.CookieWipes.Set(wiped)
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics to path atomically.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
