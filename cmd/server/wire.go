// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package main

import (
	"context"

	"github.com/leemgs/semantos/internal/alert"
	"github.com/leemgs/semantos/internal/audit"
	"github.com/leemgs/semantos/internal/breaker"
	"github.com/leemgs/semantos/internal/catalog"
	"github.com/leemgs/semantos/internal/config"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/sysctl"
	"github.com/leemgs/semantos/internal/telemetry"
)

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// openBackupStore returns a badger store for a non-empty dir, otherwise an
// in-memory one that does not survive restarts.
func openBackupStore(dir string) (sysctl.BackupStore, func(), error) {
	if dir == "" {
		logging.Warn().Msg("No backup path configured: the pre-apply backup lives in memory only")
		return sysctl.NewMemoryBackupStore(), func() {}, nil
	}
	store, err := sysctl.OpenBadgerBackupStore(dir)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("path", dir).Msg("Backup store opened")
	return store, func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing backup store")
		}
	}, nil
}

func newSLOChain(cfg config.TelemetryConfig) *telemetry.Chain {
	chain := &telemetry.Chain{}
	if cfg.URL != "" {
		chain.Live = telemetry.NewHTTPSampler(cfg.URL, cfg.Timeout, breaker.DefaultSettings())
	}
	if cfg.RunLogDir != "" {
		chain.Logs = telemetry.NewRunLogSampler(cfg.RunLogDir, cfg.RunLogSamples)
	}
	if chain.Live == nil && chain.Logs == nil {
		logging.Warn().Msg("No SLO source configured: every check reads p95=0 and passes")
	}
	return chain
}

func newAlertSink(cfg config.AlertConfig) (alert.Sink, *alert.WebhookSink) {
	return alert.New(alert.WebhookConfig{
		URL:           cfg.URL,
		Headers:       cfg.Headers,
		Timeout:       cfg.Timeout,
		QueueSize:     cfg.QueueSize,
		RatePerSecond: cfg.Rate,
		Burst:         cfg.Burst,
		Breaker:       breaker.DefaultSettings(),
	})
}

// openAuditRecorder persists to DuckDB when enabled with a path, otherwise
// keeps a bounded in-memory trail.
func openAuditRecorder(ctx context.Context, cfg config.AuditConfig) (*audit.Recorder, func(), error) {
	var store audit.Store
	closeStore := func() {}

	if cfg.Enabled && cfg.Path != "" {
		db, err := audit.OpenDuckDBStore(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closeStore = func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit store")
			}
		}
		logging.Info().Str("path", cfg.Path).Msg("Audit trail persisted to DuckDB")
	} else {
		store = audit.NewMemoryStore(cfg.MaxEntries)
	}

	recorder := audit.NewRecorder(store, cfg.BufferSize)
	return recorder, func() {
		if err := recorder.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit recorder")
		}
		closeStore()
	}, nil
}
