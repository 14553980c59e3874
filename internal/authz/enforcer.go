// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/leemgs/semantos/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions used by the API.
const (
	ObjectRollout         = "rollout"
	ObjectAudit           = "audit"
	ObjectCatalog         = "catalog"
	ObjectMetrics         = "metrics"
	ObjectRecommendations = "recommendations"

	ActionRead  = "read"
	ActionWrite = "write"
)

// Enforcer wraps the Casbin enforcer.
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	defaultRole string
	autoReload  bool
}

// NewEnforcer creates an enforcer from the configured model and policy
// files, falling back to the embedded ones for empty or missing paths.
func NewEnforcer(cfg config.CasbinConfig) (*Enforcer, error) {
	var m model.Model
	var err error

	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	filePolicy := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if filePolicy {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{enforcer: enforcer, defaultRole: cfg.DefaultRole}
	if cfg.AutoReload && filePolicy {
		interval := cfg.ReloadInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		enforcer.StartAutoLoadPolicy(interval)
		e.autoReload = true
	}
	return e, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object. An empty role
// is evaluated as the default role.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if role == "" {
		role = e.defaultRole
	}
	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// Close stops policy auto-reload.
func (e *Enforcer) Close() {
	if e.autoReload {
		e.enforcer.StopAutoLoadPolicy()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
