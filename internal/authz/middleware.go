// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package authz

import (
	"net/http"

	"github.com/leemgs/semantos/internal/auth"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize returns chi middleware that requires the authenticated role to
// be allowed action on object. It must run after auth.Middleware.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				metrics.AuthzDecisions.WithLabelValues(object, "deny").Inc()
				http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				metrics.AuthzDecisions.WithLabelValues(object, "error").Inc()
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				metrics.AuthzDecisions.WithLabelValues(object, "deny").Inc()
				logging.Ctx(r.Context()).Warn().Str("user", claims.Username).Str("role", claims.Role).
					Str("object", object).Str("action", action).Msg("Authorization denied")
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			metrics.AuthzDecisions.WithLabelValues(object, "allow").Inc()
			next.ServeHTTP(w, r)
		})
	}
}
