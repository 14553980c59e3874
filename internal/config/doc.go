// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
Package config provides centralized configuration management for SemantOS.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - An optional YAML file (CONFIG_PATH, or config.yaml / /etc/semantos/config.yaml)
  - Environment variables, mapped explicitly (see envTransformFunc)

Unmapped environment variables are ignored.

# Configuration Structure

  - ServerConfig: HTTP listener and timeouts
  - RolloutConfig: uncertainty threshold, stages, SLO ceiling, poller and breach policy
  - TelemetryConfig: live snapshot endpoint and run-log fallback
  - AlertConfig: webhook endpoint, rate limit and queue
  - SysctlConfig: commit mode, two-phase apply, backup and catalog paths
  - AuditConfig: audit trail storage
  - SecurityConfig: operator authentication, CORS and request rate limiting
  - LoggingConfig: zerolog level and format
  - SupervisorConfig: suture restart policy

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

# Key Environment Variables

	UQ_THRESHOLD=0.55          rollout.tau
	ROLLOUT_STAGES=5,25,50,100 rollout.stages
	SLO_CEILING_MS=35          rollout.slo_ceiling_ms
	POLL_INTERVAL=10s          rollout.poll_interval
	BREACH_ACTION=revert       rollout.breach_action
	TELEMETRY_URL=...          telemetry.url
	ALERT_WEBHOOK_URL=...      alert.url
	SYSCTL_COMMIT=false        sysctl.commit
	AUTH_MODE=none             security.auth_mode

# Thread Safety

Config is immutable after loading and safe for concurrent reads.
*/
package config
