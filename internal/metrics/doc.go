// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package metrics exposes Prometheus instruments for the rollout controller.
//
// Metrics are registered with the default registry through promauto and are
// served on GET /metrics. The main groups are:
//
//   - rollout_*: active flag, current percent, transitions
//   - slo_*: latest p95 sample, checks by source and outcome, poller ticks
//   - sysctl_*: privileged writes and backup saves
//   - alert_*: webhook delivery results and queue depth
//   - api_*: request counts, latency and in-flight requests
//   - circuit_breaker_*: telemetry and alert breaker states
package metrics
