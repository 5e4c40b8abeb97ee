// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/recorder/lib/events"
)

const namespace = "recorder"

// Collector is an events.Observer that maintains Prometheus metrics
// for the recorder. Each Collector owns its registry, so several can
// coexist in one process (tests, multiple recorders).
type Collector struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	recording       prometheus.Gauge
	entries         prometheus.Counter
	entryBytes      prometheus.Counter
	entrySize       prometheus.Histogram
	fileBytes       prometheus.Gauge
	moduleUsable    *prometheus.GaugeVec
	cipherRotations *prometheus.CounterVec
}

// New returns a Collector whose registry also carries the Go runtime
// and process collectors.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of recording sessions started",
		}),
		sessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of recording sessions ended, by result",
		}, []string{"result"}),
		recording: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recording",
			Help:      "1 while a recording session is running",
		}),
		entries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Total number of entries produced",
		}),
		entryBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_bytes_total",
			Help:      "Total size of produced entries in bytes, after compression and encryption",
		}),
		entrySize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entry_size_bytes",
			Help:      "Size of each produced entry in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		fileBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_file_bytes",
			Help:      "Size of the most recently finished recording file",
		}),
		moduleUsable: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_usable",
			Help:      "1 when the sensor module is usable",
		}, []string{"module"}),
		cipherRotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cipher_generated_total",
			Help:      "Total number of cipher keys and IVs generated",
		}, []string{"material"}),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Observe updates metrics from a recorder event.
func (c *Collector) Observe(event events.Event) {
	switch event.Kind {
	case events.SessionStarted:
		c.sessionsStarted.Inc()
		c.recording.Set(1)
	case events.EntryWritten:
		c.entries.Inc()
		c.entryBytes.Add(float64(len(event.Entry)))
		c.entrySize.Observe(float64(len(event.Entry)))
	case events.SessionEnded:
		result := "ok"
		if event.Err != nil {
			result = "error"
		}
		c.sessionsEnded.WithLabelValues(result).Inc()
		c.recording.Set(0)
		if event.Summary != nil {
			c.fileBytes.Set(float64(event.Summary.Bytes))
		}
	case events.ModuleUsable:
		c.moduleUsable.WithLabelValues(event.Module).Set(1)
	case events.ModuleUnusable:
		c.moduleUsable.WithLabelValues(event.Module).Set(0)
	case events.KeyGenerated:
		c.cipherRotations.WithLabelValues("key").Inc()
	case events.IVGenerated:
		c.cipherRotations.WithLabelValues("iv").Inc()
	}
}
