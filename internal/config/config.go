// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Rollout    RolloutConfig    `koanf:"rollout"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Alert      AlertConfig      `koanf:"alert"`
	Sysctl     SysctlConfig     `koanf:"sysctl"`
	Audit      AuditConfig      `koanf:"audit"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: listen host (default: 0.0.0.0)
//   - HTTP_PORT: listen port (default: 8088)
//   - HTTP_TIMEOUT: read/write timeout (default: 30s)
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RolloutConfig holds the staged rollout policy.
type RolloutConfig struct {
	// Tau is the uncertainty threshold. Recommendations with uncertainty
	// >= Tau are vetoed.
	Tau             float64       `koanf:"tau"`
	Stages          []int         `koanf:"stages"`
	SLOCeilingMs    float64       `koanf:"slo_ceiling_ms"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	AutoPoll        bool          `koanf:"auto_poll"`
	AutoAdvance     bool          `koanf:"auto_advance"`
	BreachThreshold int           `koanf:"breach_threshold"`
	BreachAction    string        `koanf:"breach_action"` // revert, state_only
}

// TelemetryConfig holds the SLO sampling sources.
type TelemetryConfig struct {
	URL           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	RunLogDir     string        `koanf:"run_log_dir"`
	RunLogSamples int           `koanf:"run_log_samples"`
}

// AlertConfig holds the webhook alert sink settings. An empty URL disables
// alerting.
type AlertConfig struct {
	URL       string            `koanf:"url"`
	Timeout   time.Duration     `koanf:"timeout"`
	Rate      float64           `koanf:"rate"` // deliveries per second
	Burst     int               `koanf:"burst"`
	QueueSize int               `koanf:"queue_size"`
	Headers   map[string]string `koanf:"headers"`
}

// SysctlConfig holds privileged applier settings.
type SysctlConfig struct {
	// Commit writes to the kernel. False means dry run.
	Commit      bool   `koanf:"commit"`
	AtomicApply bool   `koanf:"atomic_apply"`
	BackupPath  string `koanf:"backup_path"` // badger directory; empty keeps the backup in memory
	CatalogPath string `koanf:"catalog_path"`
	ProcRoot    string `koanf:"proc_root"`
}

// AuditConfig holds audit trail storage settings.
type AuditConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"` // DuckDB file; empty keeps the trail in memory
	BufferSize int    `koanf:"buffer_size"`
	MaxEntries int    `koanf:"max_entries"`
}

// SecurityConfig holds operator authentication and HTTP hardening.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // none, jwt
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	Casbin            CasbinConfig  `koanf:"casbin"`
}

// CasbinConfig holds RBAC policy settings. Empty paths use the embedded
// model and policy.
type CasbinConfig struct {
	ModelPath      string        `koanf:"model_path"`
	PolicyPath     string        `koanf:"policy_path"`
	DefaultRole    string        `koanf:"default_role"`
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig holds the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// AuthEnabled reports whether operator authentication is required.
func (c *Config) AuthEnabled() bool {
	return c.Security.AuthMode != AuthModeNone
}
