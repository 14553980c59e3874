// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/leemgs/semantos/internal/audit"
	"github.com/leemgs/semantos/internal/config"
	"github.com/leemgs/semantos/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the *Claims of the authenticated request.
const ClaimsContextKey contextKey = "claims"

// AnonymousUser is the identity used when authentication is disabled.
const AnonymousUser = "anonymous"

// Middleware authenticates requests.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
}

// NewMiddleware creates an authentication middleware. jwtManager may be nil
// when authMode is "none".
func NewMiddleware(jwtManager *JWTManager, authMode string) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		authMode:   authMode,
	}
}

// Authenticate is chi middleware that attaches claims to the request
// context or answers 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == config.AuthModeNone {
			claims := &Claims{Username: AnonymousUser, Role: RoleOperator}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
			return
		}

		token, err := extractJWTToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// extractJWTToken extracts JWT token from Authorization header or cookie
func extractJWTToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return parts[1], nil
}

// WithClaims stores claims in ctx and records the username as the audit
// actor.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsContextKey, claims)
	return audit.ContextWithActor(ctx, claims.Username)
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}
