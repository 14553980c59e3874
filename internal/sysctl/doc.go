// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package sysctl writes whitelisted kernel tunables and restores them.
//
// Every Apply captures the current value of each affected key into a
// single-slot Backup and persists it before anything is written, in dry-run
// and commit mode alike. Rollback restores that Backup; it does not consume
// it, so repeated rollbacks re-apply the same values.
//
// Committed writes need privilege (effective UID 0 unless another
// PrivilegeChecker is injected). Without it the whole call fails with
// ErrPermission and nothing is written. Writes are per-key by default; with
// WithAtomic the applier stages every value first and restores the keys it
// already wrote if a later write fails.
//
// Targets that cannot be read are recorded as "<missing>" or "<perm:...>"
// markers. Markers are never written back.
package sysctl
