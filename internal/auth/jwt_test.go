// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leemgs/semantos/internal/config"
)

const testSecret = "test-secret-key-with-at-least-32-characters"

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: timeout})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager() with empty secret should fail")
	}
	m := newTestManager(t, 0)
	if m.timeout != 24*time.Hour {
		t.Errorf("timeout = %v, want 24h default", m.timeout)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("alice", RoleOperator)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "alice" || claims.Role != RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40), SessionTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := other.GenerateToken("mallory", RoleOperator)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "eve", Role: RoleOperator}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() should fail")
			}
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	m := &JWTManager{secret: []byte(testSecret), timeout: -time.Minute}
	token, err := m.GenerateToken("alice", RoleViewer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}
