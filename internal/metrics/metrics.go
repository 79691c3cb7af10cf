// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus collectors for the subscription
// pipeline: fetch latency, cache hit/miss, per-stage duration,
// postprocessor outcomes, and the agent circuit breaker's state, per
// SPEC_FULL.md's domain-stack wiring of spec.md §4.12/§4.13.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// FetchLatencySeconds records how long a fetcher took, by source type.
	FetchLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sboxsync_fetch_latency_seconds",
		Help:    "Time spent fetching a subscription document, by source type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source_type"})

	// CacheResultTotal counts pipeline cache lookups by outcome ("hit"/"miss").
	CacheResultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sboxsync_cache_result_total",
		Help: "Total number of pipeline cache lookups, by result.",
	}, []string{"result"})

	// StageDurationSeconds records how long each pipeline stage took.
	StageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sboxsync_stage_duration_seconds",
		Help:    "Time spent in a single pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// PostprocessorOutcomeTotal counts postprocessor step outcomes by step
	// name and outcome ("ok"/"skipped"/"error").
	PostprocessorOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sboxsync_postprocessor_outcome_total",
		Help: "Total number of postprocessor step outcomes, by step and outcome.",
	}, []string{"step", "outcome"})

	// AgentCircuitState tracks the current agent-reconnect circuit breaker
	// state as a gauge (0=closed, 1=open, 2=half-open).
	AgentCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sboxsync_agent_circuit_state",
		Help: "Current state of the agent reconnect circuit breaker (0=closed, 1=open, 2=half-open).",
	})

	// AgentSendTotal counts agent IPC sends by outcome.
	AgentSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sboxsync_agent_send_total",
		Help: "Total number of agent IPC sends, by outcome (success/agent_unavailable/agent_protocol/error).",
	}, []string{"outcome"})
)

// ObserveFetch records one fetch attempt's latency.
func ObserveFetch(sourceType string, seconds float64) {
	if sourceType == "" {
		sourceType = "unknown"
	}
	FetchLatencySeconds.WithLabelValues(sourceType).Observe(seconds)
}

// RecordCacheResult increments the cache hit/miss counter.
func RecordCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheResultTotal.WithLabelValues(result).Inc()
}

// ObserveStage records one pipeline stage's duration.
func ObserveStage(stage string, seconds float64) {
	StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordPostprocessorOutcome increments the postprocessor outcome counter.
func RecordPostprocessorOutcome(step, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	PostprocessorOutcomeTotal.WithLabelValues(step, outcome).Inc()
}

// SetAgentCircuitState mirrors a resilience.State transition onto the gauge.
// Takes a plain float64 rather than a resilience.State so that package
// doesn't need to know about metrics (it exposes WithOnTransition instead;
// internal/agent's NewClient does the wiring).
func SetAgentCircuitState(value float64) {
	AgentCircuitState.Set(value)
}

// RecordAgentSend increments the agent send outcome counter.
func RecordAgentSend(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	AgentSendTotal.WithLabelValues(outcome).Inc()
}

// gaugeValue reads a gauge's current value back out, for tests. Grounded on
// the teacher's client_model read-back pattern (internal/metrics/admission.go).
func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// counterValue reads a labeled counter's current value back out, for tests.
func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
