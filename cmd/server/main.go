// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leemgs/semantos/internal/api"
	"github.com/leemgs/semantos/internal/auth"
	"github.com/leemgs/semantos/internal/authz"
	"github.com/leemgs/semantos/internal/config"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/rollout"
	"github.com/leemgs/semantos/internal/supervisor"
	"github.com/leemgs/semantos/internal/supervisor/services"
	"github.com/leemgs/semantos/internal/sysctl"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Float64("tau", cfg.Rollout.Tau).
		Ints("stages", cfg.Rollout.Stages).
		Float64("slo_ceiling_ms", cfg.Rollout.SLOCeilingMs).
		Bool("commit", cfg.Sysctl.Commit).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting SemantOS rollout controller")

	if !cfg.Sysctl.Commit {
		logging.Warn().Msg("Dry run: recommendations are recorded but not written (SYSCTL_COMMIT=false)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := loadCatalog(cfg.Sysctl.CatalogPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load tunable catalog")
	}
	constraints := guardrails.Constraints{Bounds: guardrails.BoundsFrom(cat.Bounds())}
	logging.Info().Int("tunables", cat.Len()).Msg("Catalog loaded")

	backups, closeBackups, err := openBackupStore(cfg.Sysctl.BackupPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open backup store")
	}
	defer closeBackups()

	applier := sysctl.NewApplier(cat.Paths(), backups,
		sysctl.WithTarget(sysctl.ProcFS{Root: cfg.Sysctl.ProcRoot}),
		sysctl.WithAtomic(cfg.Sysctl.AtomicApply),
		sysctl.WithPrivilegeChecker(sysctl.RootPrivilege),
	)
	if cfg.Sysctl.Commit && !sysctl.RootPrivilege() {
		logging.Warn().Msg("Commit mode without root: applies will be refused")
	}

	sink, webhook := newAlertSink(cfg.Alert)

	recorder, closeAudit, err := openAuditRecorder(ctx, cfg.Audit)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open audit store")
	}
	defer closeAudit()

	controller := rollout.NewController(rollout.Config{
		Tau:             cfg.Rollout.Tau,
		Stages:          cfg.Rollout.Stages,
		SLOCeilingMs:    cfg.Rollout.SLOCeilingMs,
		BreachThreshold: cfg.Rollout.BreachThreshold,
		BreachAction:    cfg.Rollout.BreachAction,
		Commit:          cfg.Sysctl.Commit,
		AutoAdvance:     cfg.Rollout.AutoAdvance,
	}, constraints, applier, newSLOChain(cfg.Telemetry),
		rollout.WithAlerts(sink),
		rollout.WithAuditor(recorder),
	)
	poller := rollout.NewPoller(controller, cfg.Rollout.PollInterval, cfg.Rollout.AutoPoll)

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled() {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none): every caller acts as operator")
	}

	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	defer enforcer.Close()

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*). Set explicit origins outside development.")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	handler := api.NewHandler(api.HandlerDeps{
		Rollout:     controller,
		Audit:       recorder,
		Poller:      poller,
		Catalog:     cat,
		Constraints: constraints,
		Commit:      cfg.Sysctl.Commit,
	})
	router := api.NewRouter(handler,
		api.NewChiMiddleware(mwCfg),
		auth.NewMiddleware(jwtManager, cfg.Security.AuthMode),
		authz.NewMiddleware(enforcer),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddControlService(poller)
	if webhook != nil {
		tree.AddControlService(webhook)
		logging.Info().Msg("Alert webhook worker added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().
		Str("addr", server.Addr).
		Dur("poll_interval", poller.Interval()).
		Bool("auto_poll", poller.Enabled()).
		Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Controller stopped")
}
