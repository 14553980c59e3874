// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package audit keeps the append-only trail of rollout decisions and the
// persisted copy of SLO history.
//
// Audit entries record who decided what: approve, reject, veto, rollback,
// halt and complete. History records every SLO observation taken while a
// rollout was active. The in-memory rollout state is authoritative for the
// running process; this package is what survives a restart.
//
// # Stores
//
//   - MemoryStore: bounded in-memory store for development and tests
//   - DuckDBStore: durable store (audit_entries and rollout_history tables)
//
// # Recorder
//
// Recorder buffers writes on a channel and persists them from a single
// goroutine so a slow store never holds the controller lock. A full buffer
// drops the write with a warning.
//
//	rec := audit.NewRecorder(store, 256)
//	defer rec.Close()
//	rec.Record(ctx, models.ActionApprove, "rec-1", "operator", "")
package audit
