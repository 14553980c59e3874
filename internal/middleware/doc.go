// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package middleware provides HTTP middleware shared by the API router:
// request IDs propagated into the logging context, and Prometheus request
// instrumentation labeled by chi route pattern.
package middleware
