// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
Command server runs the SemantOS guarded rollout controller.

It accepts kernel tunable recommendations over HTTP, vetoes uncertain ones,
validates the rest against the catalog guardrails, writes them through the
privileged applier and walks the rollout through its stages while a p95
latency SLO holds. A breach halts the rollout and restores the backup taken
before the first write.

# Process Layout

	root ("semantos")
	├── control-layer
	│   ├── slo-poller
	│   └── alert-webhook   (when ALERT_WEBHOOK_URL is set)
	└── api-layer
	    └── http-server

Initialization order:

 1. Configuration: koanf (defaults, YAML file, environment)
 2. Logging: zerolog
 3. Catalog and guardrail constraints
 4. Backup store (badger or memory) and sysctl applier
 5. SLO sampler chain (telemetry endpoint, run logs)
 6. Alert sink and audit recorder (DuckDB or memory)
 7. Rollout controller and SLO poller
 8. Authentication, authorization, chi router
 9. Supervisor tree

# Configuration

See internal/config for every key. The most common ones:

	UQ_THRESHOLD=0.55         uncertainty veto threshold
	ROLLOUT_STAGES=5,25,50,100
	SLO_CEILING_MS=35
	POLL_INTERVAL=10s
	TELEMETRY_URL=http://127.0.0.1:9100
	ALERT_WEBHOOK_URL=https://hooks.example.com/...
	SYSCTL_COMMIT=false       dry run unless true
	AUTH_MODE=none            or jwt with JWT_SECRET

# Signals

SIGINT and SIGTERM stop the tree. Services that do not stop within the
shutdown timeout are logged before exit.
*/
package main
