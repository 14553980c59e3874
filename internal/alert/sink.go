// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package alert delivers best-effort notifications about rollout
// transitions. Notify never blocks and never fails: delivery happens on a
// background worker, and every delivery error is logged and dropped.
package alert

import "context"

// Sink receives alert text.
type Sink interface {
	Notify(ctx context.Context, text string)
}

// NopSink discards every alert. Used when no endpoint is configured.
type NopSink struct{}

// Notify does nothing.
func (NopSink) Notify(context.Context, string) {}
