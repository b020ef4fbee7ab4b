// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unresolvedMethod labels calls rejected before a registered method
// was found. Request method names are not used as labels until they
// resolve, so arbitrary client input cannot grow the label set.
const unresolvedMethod = "-"

// Metrics holds the Prometheus collectors for a Server.
type Metrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the call collectors and registers them, together
// with the Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	metrics := &Metrics{
		registry: registry,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "calls_total",
			Help:      "Calls handled, by service, method, and envelope code.",
		}, []string{"service", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meridian",
			Name:      "call_duration_seconds",
			Help:      "Time from receiving a call body to producing its envelope.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
	}
	registry.MustRegister(
		metrics.calls,
		metrics.duration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return metrics
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, for tests and for binaries
// that register additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observeCall records one call. Safe on a nil receiver.
func (m *Metrics) observeCall(service, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = unresolvedMethod
	}
	m.calls.WithLabelValues(service, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}
