// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package auth authenticates operators of the rollout API.
//
// Two modes exist. "jwt" requires an HS256 bearer token (Authorization
// header or "token" cookie) carrying a username and a role. "none" admits
// every request as the anonymous operator, for local development.
//
// The authenticated username becomes the actor recorded in the audit trail.
package auth
