package metrics

/*
rxcovid — COVID-19 threat domain feed exporter for SIEM reference sets
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	metricsEnabled    bool
)

// Metrics contains all the Prometheus metrics for a sync run.
// rxcovid runs once per schedule, so metrics are written to a node_exporter
// textfile at the end of the run instead of being scraped from a live endpoint.
type Metrics struct {
	// Network metrics
	NetworkRequestDuration *prometheus.HistogramVec
	NetworkRequestsTotal   *prometheus.CounterVec
	NetworkBytesTotal      *prometheus.CounterVec

	// Normalization metrics
	RecordsTotal *prometheus.CounterVec

	// Output metrics
	OutputLines   prometheus.Gauge
	OutputBytes   prometheus.Gauge
	OutputChanged prometheus.Gauge

	// Run metrics
	RunDuration        prometheus.Gauge
	RunFailuresTotal   *prometheus.CounterVec
	LastSuccess        prometheus.Gauge
	SourceLastModified prometheus.Gauge
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

func newMetrics() *Metrics {
	buckets := []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}

	return &Metrics{
		NetworkRequestDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxcovid_network_request_duration_seconds",
				Help:    "Time spent on feed bucket requests",
				Buckets: buckets,
			},
			[]string{"endpoint"},
		),
		NetworkRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxcovid_network_requests_total",
				Help: "Total number of feed bucket requests",
			},
			[]string{"endpoint", "status"},
		),
		NetworkBytesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxcovid_network_bytes_total",
				Help: "Total number of response body bytes received",
			},
			[]string{"endpoint"},
		),

		RecordsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxcovid_records_total",
				Help: "Rows seen by each normalization stage",
			},
			[]string{"stage"},
		),

		OutputLines: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_output_lines",
			Help: "Number of lines in the last written reference set file",
		}),
		OutputBytes: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_output_bytes",
			Help: "Size of the last written reference set file",
		}),
		OutputChanged: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_output_changed",
			Help: "Whether the last run changed the reference set file (1) or not (0)",
		}),

		RunDuration: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		RunFailuresTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxcovid_run_failures_total",
				Help: "Failed runs by error kind",
			},
			[]string{"kind"},
		),
		LastSuccess: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		SourceLastModified: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "rxcovid_source_last_modified_timestamp_seconds",
			Help: "LastModified of the data file used by the last successful run",
		}),
	}
}

// WriteTextfile writes the registry in text exposition format to path.
// The file is written atomically so a collector never reads a partial file.
func WriteTextfile(path string) error {
	if !metricsEnabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, registry)
}

// Gatherer exposes the registry, mainly for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		histogram.With(labels).Observe(time.Since(start).Seconds())
	}
}

// RecordRequest counts a finished request. status is the HTTP status code, or 0 on transport failure.
func (m *Metrics) RecordRequest(endpoint string, status int, bytes int64) {
	if !metricsEnabled {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.NetworkRequestsTotal.WithLabelValues(endpoint, label).Inc()
	if bytes > 0 {
		m.NetworkBytesTotal.WithLabelValues(endpoint).Add(float64(bytes))
	}
}

// AddRecords adds n to the counter for a normalization stage.
func (m *Metrics) AddRecords(stage string, n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordOutput updates the output gauges after a successful write.
func (m *Metrics) RecordOutput(lines int, bytes int64, changed bool) {
	if !metricsEnabled {
		return
	}
	m.OutputLines.Set(float64(lines))
	m.OutputBytes.Set(float64(bytes))
	if changed {
		m.OutputChanged.Set(1)
	} else {
		m.OutputChanged.Set(0)
	}
}

// RecordRun updates the run gauges. kind is empty on success.
func (m *Metrics) RecordRun(elapsed time.Duration, kind string, source time.Time) {
	if !metricsEnabled {
		return
	}
	m.RunDuration.Set(elapsed.Seconds())
	if kind != "" {
		m.RunFailuresTotal.WithLabelValues(kind).Inc()
		return
	}
	m.LastSuccess.SetToCurrentTime()
	if !source.IsZero() {
		m.SourceLastModified.Set(float64(source.Unix()))
	}
}
