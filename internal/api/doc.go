// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
Package api provides the HTTP surface of the rollout controller.

# Endpoints

	GET  /health                        liveness and effective rollout policy
	GET  /metrics                       Prometheus exposition
	GET  /status                        rollout snapshot (viewer)
	GET  /audit                         audit trail, newest first (viewer)
	GET  /catalog                       tunable catalog (viewer)
	POST /validate                      dry guardrail validation (viewer)
	POST /apply                         validate, gate and start a rollout (operator)
	POST /advance, /rollout/advance     SLO-checked stage advance (operator)
	POST /rollback                      reset and restore the kernel backup (operator)
	POST /recommendations/{id}/reject   record a rejection (operator)

Rollout endpoints answer with bare JSON objects. Failures outside those
shapes use the APIResponse error envelope.

# Error Mapping

	guardrails.ValidationError   422 {"issues": [...]}
	request validation           400 VALIDATION_FAILED
	sysctl.ErrPermission         403 FORBIDDEN
	anything else                500 INTERNAL_ERROR
*/
package api
