// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
Package models defines the data shared by the rollout controller, the
privileged applier, the audit trail and the HTTP surface.

# Organization

  - rollout.go: tunables, recommendations, SLO history, rollout snapshots,
    per-key apply and rollback results
  - audit.go: audit actions, entries and query filters

Models carry JSON tags matching the HTTP wire format and validator tags
for request validation. Value accepts either a JSON number or a string so
upstream reasoners may emit either.
*/
package models
