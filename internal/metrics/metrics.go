// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rollout Metrics
	RolloutActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollout_active",
			Help: "1 while a staged rollout is active",
		},
	)

	RolloutPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollout_percent",
			Help: "Current rollout stage percentage (0 when idle)",
		},
	)

	RolloutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollout_transitions_total",
			Help: "Total number of rollout state transitions",
		},
		[]string{"transition"}, // started, advanced, completed, halted, rolled_back
	)

	RecommendationsGated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_gated_total",
			Help: "Recommendations passed through the uncertainty gate",
		},
		[]string{"decision"}, // applied, vetoed
	)

	GuardrailRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardrail_rejections_total",
			Help: "Batches rejected by bounds or relational guardrails",
		},
	)

	// SLO Metrics
	SLOLatestP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_latest_p95_ms",
			Help: "Most recent p95 latency sample in milliseconds",
		},
	)

	SLOChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slo_checks_total",
			Help: "SLO checks by source and outcome",
		},
		[]string{"source", "result"}, // source: poller, manual; result: pass, breach
	)

	SLOSampleSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slo_sample_source_total",
			Help: "Which sampler produced the SLO sample",
		},
		[]string{"sampler"}, // telemetry, runlog, fallback
	)

	PollerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slo_poller_ticks_total",
			Help: "SLO poller ticks by outcome",
		},
		[]string{"result"}, // idle, pass, breach, error, panic
	)

	// Privileged Applier Metrics
	SysctlWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sysctl_writes_total",
			Help: "Sysctl writes by operation and result",
		},
		[]string{"operation", "result"}, // operation: apply, rollback; result: success, error, denied
	)

	BackupSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sysctl_backup_saves_total",
			Help: "Backup slot writes",
		},
		[]string{"result"},
	)

	// Alert Metrics
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_total",
			Help: "Alerts by delivery result",
		},
		[]string{"result"}, // sent, failed, dropped, rate_limited, rejected
	)

	AlertQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_queue_depth",
			Help: "Alerts waiting for delivery",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Audit Metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Audit entries written by result",
		},
		[]string{"result"}, // success, error, dropped
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by object and result",
		},
		[]string{"object", "result"}, // result: allow, deny, error
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetRolloutState mirrors the rollout snapshot into gauges.
func SetRolloutState(active bool, percent int) {
	if active {
		RolloutActive.Set(1)
	} else {
		RolloutActive.Set(0)
	}
	RolloutPercent.Set(float64(percent))
}

// RecordSLOCheck records one SLO comparison.
func RecordSLOCheck(source string, p95 float64, passed bool) {
	SLOLatestP95.Set(p95)
	result := "pass"
	if !passed {
		result = "breach"
	}
	SLOChecks.WithLabelValues(source, result).Inc()
}
