// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package config

import (
	"fmt"
	"strings"
	"time"
)

// Auth modes.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// Breach actions.
const (
	BreachActionRevert    = "revert"
	BreachActionStateOnly = "state_only"
)

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRollout(); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	if err := c.validateAlert(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validateRollout enforces tau in (0,1], strictly increasing stages in
// (0,100] ending at 100, and a positive ceiling and poll interval.
func (c *Config) validateRollout() error {
	r := c.Rollout
	if r.Tau <= 0 || r.Tau > 1 {
		return fmt.Errorf("UQ_THRESHOLD must be in (0,1], got %v", r.Tau)
	}
	if err := validateStages(r.Stages); err != nil {
		return fmt.Errorf("ROLLOUT_STAGES %w", err)
	}
	if r.SLOCeilingMs <= 0 {
		return fmt.Errorf("SLO_CEILING_MS must be positive")
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if r.BreachThreshold < 1 {
		return fmt.Errorf("BREACH_THRESHOLD must be at least 1")
	}
	switch r.BreachAction {
	case BreachActionRevert, BreachActionStateOnly:
	default:
		return fmt.Errorf("BREACH_ACTION must be one of: revert, state_only")
	}
	return nil
}

func validateStages(stages []int) error {
	if len(stages) == 0 {
		return fmt.Errorf("must not be empty")
	}
	prev := 0
	for _, s := range stages {
		if s <= prev || s > 100 {
			return fmt.Errorf("must be strictly increasing percentages in (0,100], got %v", stages)
		}
		prev = s
	}
	if prev != 100 {
		return fmt.Errorf("must end at 100, got %v", stages)
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.URL != "" {
		if err := validateHTTPURL(c.Telemetry.URL, "TELEMETRY_URL"); err != nil {
			return err
		}
	}
	if c.Telemetry.Timeout <= 0 {
		return fmt.Errorf("TELEMETRY_TIMEOUT must be positive")
	}
	if c.Telemetry.RunLogSamples < 1 {
		return fmt.Errorf("RUN_LOG_SAMPLES must be at least 1")
	}
	return nil
}

func (c *Config) validateAlert() error {
	if c.Alert.URL == "" {
		return nil
	}
	if err := validateWebhookURL(c.Alert.URL, "ALERT_WEBHOOK_URL"); err != nil {
		return err
	}
	if c.Alert.Timeout <= 0 {
		return fmt.Errorf("ALERT_TIMEOUT must be positive")
	}
	if c.Alert.Rate <= 0 || c.Alert.Burst < 1 {
		return fmt.Errorf("ALERT_RATE must be positive and ALERT_BURST at least 1")
	}
	if c.Alert.QueueSize < 1 {
		return fmt.Errorf("ALERT_QUEUE_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeNone:
	case AuthModeJWT:
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	if c.Security.AuthMode != AuthModeNone && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
	}
	upper := strings.ToUpper(secret)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return fmt.Errorf("JWT_SECRET looks like a placeholder value")
		}
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != AuthModeNone && c.hasWildcardCORS()
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns indicate the operator forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"EXAMPLE",
}
