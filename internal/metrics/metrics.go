// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

// Package metrics exposes dialogue engine counters in the Prometheus text
// format. Collectors live on a private registry so tests and multiple
// engines in one process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solrock"

// Metrics records turn outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns      *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	retries    prometheus.Counter
	failures   *prometheus.CounterVec
	completion prometheus.Histogram
	tokens     *prometheus.CounterVec
	secrets    *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed dialogue turns by intent and result kind.",
		}, []string{"intent", "kind"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_fallbacks_total",
			Help:      "Structured responses that could not be parsed and were returned as text.",
		}, []string{"intent"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Completion calls retried after a rate limit.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed turns by error code.",
		}, []string{"code"}),
		completion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_seconds",
			Help:      "Wall time of completion calls including retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider, by direction.",
		}, []string{"direction"}),
		secrets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secrets_detected_total",
			Help:      "Messages in which a credential rule matched, by rule and handling mode.",
		}, []string{"rule", "mode"}),
	}

	m.registry.MustRegister(
		m.turns, m.fallbacks, m.retries, m.failures, m.completion, m.tokens, m.secrets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTurn(intent, kind string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent, kind).Inc()
}

func (m *Metrics) ObserveFallback(intent string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(intent).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) ObserveFailure(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.failures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveCompletion(d time.Duration) {
	if m == nil {
		return
	}
	m.completion.Observe(d.Seconds())
}

func (m *Metrics) ObserveTokens(input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokens.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		m.tokens.WithLabelValues("output").Add(float64(output))
	}
}

func (m *Metrics) ObserveSecret(rule, mode string) {
	if m == nil {
		return
	}
	m.secrets.WithLabelValues(rule, mode).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
