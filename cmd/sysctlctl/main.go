// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Command sysctlctl validates, applies and rolls back tunable
// recommendations without running the controller. It shares the catalog,
// guardrails, veto gate and backup slot with the server, so a rollback here
// restores what the server wrote and the reverse.
//
//	sysctlctl validate -f recs.json
//	sysctlctl apply -f recs.json --commit
//	sysctlctl rollback
//	sysctlctl token --user alice --role operator
package main

import (
	"fmt"
	"os"

	"github.com/leemgs/semantos/internal/logging"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

func main() {
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}
