// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package authz provides role-based authorization using Casbin.
//
// The embedded policy defines two roles. viewer may read rollout status,
// the audit trail and the tunable catalog. operator inherits viewer and may
// also apply, advance, roll back and reject. A file model and policy may
// replace the embedded ones.
package authz
