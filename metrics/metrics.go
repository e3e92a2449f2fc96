// Package metrics exposes the outcome of a run as Prometheus gauges, written
// to a node_exporter textfile collector file since qbitprune exits after
// every run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/s0up4200/qbitprune/cleaner"
)

const namespace = "qbitprune"

// RunMetrics holds the gauges describing the last run.
type RunMetrics struct {
	registry *prometheus.Registry

	// LastRun is the unix time the run started.
	LastRun prometheus.Gauge

	// Duration is how long the run took.
	Duration prometheus.Gauge

	// Torrents counts torrents per classification verdict.
	Torrents *prometheus.GaugeVec

	RemovedTorrents prometheus.Gauge
	RemovedBytes    prometheus.Gauge

	FreeBytes      prometheus.Gauge
	RequiredBytes  prometheus.Gauge
	ShortfallBytes prometheus.Gauge

	// DanglingEntries and ReclaimedBytes are labelled by download folder.
	DanglingEntries *prometheus.GaugeVec
	ReclaimedBytes  *prometheus.GaugeVec

	Failures prometheus.Gauge
	DryRun   prometheus.Gauge
}

// NewRunMetrics creates run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	return NewRunMetricsWithRegistry(prometheus.NewRegistry())
}

// NewRunMetricsWithRegistry creates run metrics registered with reg.
func NewRunMetricsWithRegistry(reg *prometheus.Registry) *RunMetrics {
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	gaugeVec := func(subsystem, name, help, label string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, []string{label})
	}

	m := &RunMetrics{
		registry:        reg,
		LastRun:         gauge("run", "last_timestamp_seconds", "Unix time the last run started."),
		Duration:        gauge("run", "duration_seconds", "Duration of the last run."),
		Torrents:        gaugeVec("", "torrents", "Torrents claimed by a rule or left unhandled, by verdict.", "verdict"),
		RemovedTorrents: gauge("removal", "torrents", "Torrents removed by the last run."),
		RemovedBytes:    gauge("removal", "bytes", "Total size of the torrents removed by the last run."),
		FreeBytes:       gauge("disk", "free_bytes", "Free space on the first download folder before the run."),
		RequiredBytes:   gauge("disk", "required_bytes", "Configured free space target."),
		ShortfallBytes:  gauge("disk", "shortfall_bytes", "Free space still missing after every candidate was removed."),
		DanglingEntries: gaugeVec("reconcile", "dangling_entries", "Files and folders not owned by any torrent.", "root"),
		ReclaimedBytes:  gaugeVec("reconcile", "reclaimed_bytes", "Space freed by removing dangling entries.", "root"),
		Failures:        gauge("run", "failures", "Removals that failed during the last run."),
		DryRun:          gauge("run", "dry_run", "1 when the last run did not change anything."),
	}

	reg.MustRegister(
		m.LastRun,
		m.Duration,
		m.Torrents,
		m.RemovedTorrents,
		m.RemovedBytes,
		m.FreeBytes,
		m.RequiredBytes,
		m.ShortfallBytes,
		m.DanglingEntries,
		m.ReclaimedBytes,
		m.Failures,
		m.DryRun,
	)

	return m
}

// Observe records a finished run.
func (m *RunMetrics) Observe(report *cleaner.Report, duration time.Duration) {
	m.LastRun.Set(float64(report.Started.Unix()))
	m.Duration.Set(duration.Seconds())

	if cls := report.Classification; cls != nil {
		m.Torrents.WithLabelValues("must_remove").Set(float64(len(cls.MustRemove)))
		m.Torrents.WithLabelValues("can_remove").Set(float64(len(cls.CanRemove)))
		m.Torrents.WithLabelValues("unclaimed").Set(float64(len(cls.Unclaimed)))
	}
	m.Torrents.WithLabelValues("unhandled").Set(float64(len(report.Unhandled)))

	m.RemovedTorrents.Set(float64(len(report.Removed)))
	m.RemovedBytes.Set(float64(report.RemovedSize()))

	m.FreeBytes.Set(float64(report.Usage.Free))
	m.RequiredBytes.Set(float64(report.RequiredSpace))
	m.ShortfallBytes.Set(float64(report.Shortfall()))

	for _, f := range report.Folders {
		m.DanglingEntries.WithLabelValues(f.Root).Set(float64(len(f.Dangling)))
		m.ReclaimedBytes.WithLabelValues(f.Root).Set(float64(f.Reclaimed))
	}

	m.Failures.Set(float64(len(report.Failures)))
	if report.DryRun {
		m.DryRun.Set(1)
	} else {
		m.DryRun.Set(0)
	}
}

// WriteTextfile atomically writes every metric to path in the text
// exposition format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
