// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leemgs/semantos/internal/auth"
)

func TestAuthorize(t *testing.T) {
	mw := NewMiddleware(newTestEnforcer(t))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		claims   *auth.Claims
		action   string
		wantCode int
	}{
		{"no claims", nil, ActionRead, http.StatusForbidden},
		{"viewer reads", &auth.Claims{Username: "v", Role: auth.RoleViewer}, ActionRead, http.StatusNoContent},
		{"viewer writes", &auth.Claims{Username: "v", Role: auth.RoleViewer}, ActionWrite, http.StatusForbidden},
		{"operator writes", &auth.Claims{Username: "o", Role: auth.RoleOperator}, ActionWrite, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rollback", nil)
			if tt.claims != nil {
				req = req.WithContext(auth.WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			mw.Authorize(ObjectRollout, tt.action)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}
