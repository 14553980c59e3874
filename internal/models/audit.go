// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package models

import "time"

// Audit actions.
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionVeto     = "veto"
	ActionRollback = "rollback"
	ActionHalt     = "halt"
	ActionComplete = "complete"
)

// AuditEntry records an operator or automated decision. Distinct from
// rollout history, which records SLO observations.
type AuditEntry struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Action           string    `json:"action"`
	RecommendationID string    `json:"recommendation_id,omitempty"`
	Actor            string    `json:"actor"`
	Detail           string    `json:"detail,omitempty"`
}

// AuditFilter narrows an audit query.
type AuditFilter struct {
	Action           string
	RecommendationID string
	Limit            int
}
