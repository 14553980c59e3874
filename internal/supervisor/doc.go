// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
Package supervisor runs the long-lived services of the controller under a
suture v4 tree.

# Layout

	root ("semantos")
	├── control-layer
	│   ├── slo-poller      periodic SLO check of the active rollout
	│   └── alert-webhook   queued webhook delivery
	└── api-layer
	    └── http-server     the chi router

A crash in the control layer restarts the poller or the webhook worker
without dropping HTTP connections, and the reverse.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddControlService(poller)
	tree.AddControlService(webhook)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

Supervisor events go through sutureslog into the zerolog-backed slog
handler, so restarts and backoff show up in the same log stream as the
rest of the process.

# Shutdown

Cancelling the context stops every layer. Services that do not return
within ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
