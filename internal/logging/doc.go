// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package logging provides the zerolog-based structured logger shared by the
// rollout controller, the SLO poller, the privileged applier and the HTTP API.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("rec_id", id).Int("percent", 5).Msg("Rollout started")
//	logging.Ctx(ctx).Warn().Float64("p95_ms", p95).Msg("SLO breach")
//
// # Configuration
//
// Environment variables (read through internal/config):
//
//	LOG_LEVEL   trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  json, console (default: json)
//	LOG_CALLER  true/false (default: false)
//
// Always terminate event chains with Msg or Send, otherwise nothing is written.
//
// # Context
//
// HTTP requests carry a request_id and poller ticks carry a correlation_id;
// Ctx(ctx) adds both to every line so a breach can be traced from the tick
// that sampled it to the alert it produced.
//
// # Supervisor Integration
//
// NewSlogLogger adapts the zerolog logger to log/slog for sutureslog, which
// reports service restarts and backoff in the supervisor tree.
package logging
