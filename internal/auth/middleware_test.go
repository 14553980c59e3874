// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leemgs/semantos/internal/audit"
	"github.com/leemgs/semantos/internal/config"
)

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-Role", claims.Role)
		_, _ = w.Write([]byte(audit.ActorFromContext(r.Context())))
	})
}

func TestAuthenticate_NoneMode(t *testing.T) {
	mw := NewMiddleware(nil, config.AuthModeNone)
	rec := httptest.NewRecorder()
	mw.Authenticate(echoActor()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != AnonymousUser || rec.Header().Get("X-Role") != RoleOperator {
		t.Errorf("actor = %q role = %q", rec.Body.String(), rec.Header().Get("X-Role"))
	}
}

func TestAuthenticate_JWTMode(t *testing.T) {
	m := newTestManager(t, time.Hour)
	mw := NewMiddleware(m, config.AuthModeJWT)
	token, _ := m.GenerateToken("bob", RoleViewer)

	tests := []struct {
		name     string
		setup    func(*http.Request)
		wantCode int
		wantBody string
	}{
		{"missing token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic Ym9iOnB3") }, http.StatusUnauthorized, ""},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "bob"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) }, http.StatusOK, "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			mw.Authenticate(echoActor()).ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
