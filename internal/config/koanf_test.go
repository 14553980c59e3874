// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Rollout.Tau != 0.55 {
		t.Errorf("Rollout.Tau = %v, want 0.55", cfg.Rollout.Tau)
	}
	if !reflect.DeepEqual(cfg.Rollout.Stages, []int{5, 25, 50, 100}) {
		t.Errorf("Rollout.Stages = %v", cfg.Rollout.Stages)
	}
	if cfg.Rollout.SLOCeilingMs != 35 {
		t.Errorf("Rollout.SLOCeilingMs = %v, want 35", cfg.Rollout.SLOCeilingMs)
	}
	if cfg.Rollout.PollInterval != 10*time.Second {
		t.Errorf("Rollout.PollInterval = %v, want 10s", cfg.Rollout.PollInterval)
	}
	if !cfg.Rollout.AutoPoll {
		t.Error("Rollout.AutoPoll should be true by default")
	}
	if cfg.Rollout.BreachAction != BreachActionRevert {
		t.Errorf("Rollout.BreachAction = %q, want revert", cfg.Rollout.BreachAction)
	}
	if cfg.Sysctl.Commit {
		t.Error("Sysctl.Commit should be false (dry run) by default")
	}
	if cfg.Security.AuthMode != AuthModeNone {
		t.Errorf("Security.AuthMode = %q, want none", cfg.Security.AuthMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"UQ_THRESHOLD", "rollout.tau"},
		{"ROLLOUT_STAGES", "rollout.stages"},
		{"SLO_CEILING_MS", "rollout.slo_ceiling_ms"},
		{"ALERT_WEBHOOK_URL", "alert.url"},
		{"SYSCTL_COMMIT", "sysctl.commit"},
		{"LOG_LEVEL", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("UQ_THRESHOLD", "0.4")
	t.Setenv("ROLLOUT_STAGES", "10, 50,100")
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("BREACH_ACTION", "state_only")
	t.Setenv("SYSCTL_COMMIT", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Rollout.Tau != 0.4 {
		t.Errorf("Tau = %v, want 0.4", cfg.Rollout.Tau)
	}
	if !reflect.DeepEqual(cfg.Rollout.Stages, []int{10, 50, 100}) {
		t.Errorf("Stages = %v, want [10 50 100]", cfg.Rollout.Stages)
	}
	if cfg.Rollout.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v", cfg.Rollout.PollInterval)
	}
	if cfg.Rollout.BreachAction != BreachActionStateOnly {
		t.Errorf("BreachAction = %q", cfg.Rollout.BreachAction)
	}
	if !cfg.Sysctl.Commit {
		t.Error("Commit = false, want true")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanf_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
rollout:
  tau: 0.7
  stages: [20, 100]
  slo_ceiling_ms: 50
alert:
  url: https://hooks.example.com/services/rollout
  headers:
    X-Token: abc
sysctl:
  atomic_apply: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// Environment wins over the file.
	t.Setenv("SLO_CEILING_MS", "40")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Rollout.Tau != 0.7 {
		t.Errorf("Tau = %v, want 0.7", cfg.Rollout.Tau)
	}
	if !reflect.DeepEqual(cfg.Rollout.Stages, []int{20, 100}) {
		t.Errorf("Stages = %v", cfg.Rollout.Stages)
	}
	if cfg.Rollout.SLOCeilingMs != 40 {
		t.Errorf("SLOCeilingMs = %v, want 40 from env", cfg.Rollout.SLOCeilingMs)
	}
	if !cfg.Sysctl.AtomicApply {
		t.Error("AtomicApply = false, want true")
	}
	if cfg.Alert.URL == "" {
		t.Error("Alert.URL not loaded")
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want default 8088", cfg.Server.Port)
	}
}

func TestLoadWithKoanf_InvalidRejected(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ROLLOUT_STAGES", "50,25,100")

	_, err := LoadWithKoanf()
	if err == nil || !strings.Contains(err.Error(), "ROLLOUT_STAGES") {
		t.Fatalf("LoadWithKoanf() error = %v, want stages error", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile() on a missing file returned nil error")
	}
}
