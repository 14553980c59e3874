// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"context"
	"time"

	"github.com/leemgs/semantos/internal/catalog"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/rollout"
)

// RolloutController is the part of rollout.Controller the API drives.
type RolloutController interface {
	Apply(ctx context.Context, recs []models.Recommendation) (*rollout.ApplyResult, error)
	Advance(ctx context.Context) rollout.AdvanceResult
	Rollback(ctx context.Context) (*rollout.RollbackResult, error)
	Status() models.RolloutSnapshot
	Reject(ctx context.Context, recID, reason string)
	Config() rollout.Config
}

// AuditLister reads the audit trail.
type AuditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
}

// PollerState reports the SLO poller settings.
type PollerState interface {
	Interval() time.Duration
	Enabled() bool
}

// Handler holds the dependencies of every endpoint.
type Handler struct {
	rollout     RolloutController
	audit       AuditLister
	poller      PollerState
	catalog     *catalog.Catalog
	constraints guardrails.Constraints
	commit      bool
	startTime   time.Time
}

// HandlerDeps groups the constructor arguments of Handler.
type HandlerDeps struct {
	Rollout     RolloutController
	Audit       AuditLister
	Poller      PollerState
	Catalog     *catalog.Catalog
	Constraints guardrails.Constraints
	// Commit reports whether applies write to the kernel.
	Commit bool
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		rollout:     deps.Rollout,
		audit:       deps.Audit,
		poller:      deps.Poller,
		catalog:     deps.Catalog,
		constraints: deps.Constraints,
		commit:      deps.Commit,
		startTime:   time.Now(),
	}
}
