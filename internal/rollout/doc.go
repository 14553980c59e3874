// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package rollout owns the staged rollout state machine and the SLO poller
// that can halt it.
//
// # States
//
//	Idle --Apply--> Active(0) --Advance(pass)--> Active(i+1) ... --> Completed
//	Active(i) --SLO breach--> Idle (plus the configured breach action)
//	any --Rollback--> Idle
//
// At most one rollout is active. Apply, Advance, Rollback and every poller
// tick are serialized as whole transitions, SLO sampling included; Status
// reads a deep copy and is never blocked by a slow sample.
//
// # Breach action
//
// "revert" (default) calls the privileged applier's rollback whenever an
// SLO breach halts a rollout, keeping the logical state and the kernel in
// agreement. "state_only" only resets the logical state and logs a drift
// warning.
package rollout
