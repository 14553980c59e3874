// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/semantos/config.yaml",
	"/etc/semantos/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Rollout: RolloutConfig{
			Tau:             0.55,
			Stages:          []int{5, 25, 50, 100},
			SLOCeilingMs:    35,
			PollInterval:    10 * time.Second,
			AutoPoll:        true,
			AutoAdvance:     false,
			BreachThreshold: 1,
			BreachAction:    "revert",
		},
		Telemetry: TelemetryConfig{
			URL:           "",
			Timeout:       2 * time.Second,
			RunLogDir:     "data/runs",
			RunLogSamples: 5,
		},
		Alert: AlertConfig{
			URL:       "",
			Timeout:   5 * time.Second,
			Rate:      1,
			Burst:     5,
			QueueSize: 64,
			Headers:   map[string]string{},
		},
		Sysctl: SysctlConfig{
			Commit:      false, // dry run unless explicitly enabled
			AtomicApply: false,
			BackupPath:  "/var/lib/semantos/backup",
			CatalogPath: "",
			ProcRoot:    "",
		},
		Audit: AuditConfig{
			Enabled:    true,
			Path:       "",
			BufferSize: 256,
			MaxEntries: 10000,
		},
		Security: SecurityConfig{
			AuthMode:          AuthModeNone,
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			Casbin: CasbinConfig{
				DefaultRole:    "viewer",
				AutoReload:     false,
				ReloadInterval: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile loads configuration from an explicit YAML file over the
// defaults, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"rollout.stages",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings; the unmarshaler converts the elements to the field type.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Rollout mappings
	"uq_threshold":     "rollout.tau",
	"rollout_stages":   "rollout.stages",
	"slo_ceiling_ms":   "rollout.slo_ceiling_ms",
	"poll_interval":    "rollout.poll_interval",
	"auto_poll":        "rollout.auto_poll",
	"auto_advance":     "rollout.auto_advance",
	"breach_threshold": "rollout.breach_threshold",
	"breach_action":    "rollout.breach_action",

	// Telemetry mappings
	"telemetry_url":     "telemetry.url",
	"telemetry_timeout": "telemetry.timeout",
	"run_log_dir":       "telemetry.run_log_dir",
	"run_log_samples":   "telemetry.run_log_samples",

	// Alert mappings
	"alert_webhook_url": "alert.url",
	"alert_timeout":     "alert.timeout",
	"alert_rate":        "alert.rate",
	"alert_burst":       "alert.burst",
	"alert_queue_size":  "alert.queue_size",

	// Sysctl mappings
	"sysctl_commit":       "sysctl.commit",
	"sysctl_atomic_apply": "sysctl.atomic_apply",
	"sysctl_backup_path":  "sysctl.backup_path",
	"sysctl_catalog_path": "sysctl.catalog_path",
	"sysctl_proc_root":    "sysctl.proc_root",

	// Audit mappings
	"audit_enabled":     "audit.enabled",
	"audit_path":        "audit.path",
	"audit_buffer_size": "audit.buffer_size",
	"audit_max_entries": "audit.max_entries",

	// Security mappings
	"auth_mode":              "security.auth_mode",
	"jwt_secret":             "security.jwt_secret",
	"session_timeout":        "security.session_timeout",
	"cors_origins":           "security.cors_origins",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"casbin_model_path":      "security.casbin.model_path",
	"casbin_policy_path":     "security.casbin.policy_path",
	"casbin_default_role":    "security.casbin.default_role",
	"casbin_auto_reload":     "security.casbin.auto_reload",
	"casbin_reload_interval": "security.casbin.reload_interval",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor mappings
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - UQ_THRESHOLD -> rollout.tau
//   - ROLLOUT_STAGES -> rollout.stages
//   - ALERT_WEBHOOK_URL -> alert.url
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped keys are skipped so unrelated environment variables do not
	// pollute the configuration.
	return ""
}
