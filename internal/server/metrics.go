// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/router"
)

// ============================================================================
// METRICS
// ============================================================================

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	routed     *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	inflight   prometheus.Gauge
	httpStatus *prometheus.CounterVec
}

// latencyBuckets covers classification-only requests up to slow local
// generations.
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// NewMetrics registers the collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joat",
			Name:      "routed_queries_total",
			Help:      "Queries routed, by task type.",
		}, []string{"task_type"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joat",
			Name:      "fallbacks_total",
			Help:      "Essential-mode fallbacks, by task type.",
		}, []string{"task_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joat",
			Name:      "errors_total",
			Help:      "Routing and generation errors, by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "joat",
			Name:      "generation_seconds",
			Help:      "Time to route and generate a response.",
			Buckets:   latencyBuckets,
		}, []string{"task_type", "model"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "joat",
			Name:      "generations_in_flight",
			Help:      "Generations waiting on the backend.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "joat",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "HTTP responses, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.routed, m.fallbacks, m.errors, m.latency, m.inflight, m.httpStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveDecision counts one routing decision.
func (m *Metrics) ObserveDecision(d router.RoutingDecision) {
	m.routed.WithLabelValues(string(d.TaskType)).Inc()
	if d.UsedFallback {
		m.fallbacks.WithLabelValues(string(d.TaskType)).Inc()
	}
	if d.Error != nil {
		m.errors.WithLabelValues(string(d.Error.Kind)).Inc()
	}
}

// ObserveResult counts one processed query. Routing errors are counted by
// ObserveDecision through the result's decision.
func (m *Metrics) ObserveResult(res engine.Result) {
	m.ObserveDecision(res.Decision)
	if res.Error != nil && res.Decision.Error == nil {
		m.errors.WithLabelValues(string(res.Error.Kind)).Inc()
	}
	if res.Decision.OK() {
		m.latency.WithLabelValues(string(res.TaskType), res.ModelUsed).Observe(res.Duration.Seconds())
	}
}

// trackGeneration bumps the in-flight gauge and returns its release.
func (m *Metrics) trackGeneration() func() {
	m.inflight.Inc()
	return m.inflight.Dec
}

func (m *Metrics) observeStatus(route string, code int) {
	m.httpStatus.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// sinceSeconds is a small helper for uptime reporting.
func sinceSeconds(t time.Time) int64 {
	return int64(time.Since(t).Seconds())
}
