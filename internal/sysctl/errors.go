// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package sysctl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermission is returned when a committed write or a rollback is
	// attempted without privilege. Nothing has been written.
	ErrPermission = errors.New("must be root to write /proc/sys values")

	// ErrNoBackup is returned by Rollback when no backup has been captured.
	ErrNoBackup = errors.New("no sysctl backup")

	// ErrBackupCorrupt is returned when a stored backup fails its checksum.
	ErrBackupCorrupt = errors.New("sysctl backup checksum mismatch")

	// ErrUnrestorable is returned in atomic mode when a target could not be
	// read, so a failed write could not be undone.
	ErrUnrestorable = errors.New("target has no restorable value")
)

// WriteError reports a failed committed write.
type WriteError struct {
	Key string
	// Written lists the keys that were written before the failure.
	Written []string
	// Reverted is true when the written keys were restored (atomic mode).
	Reverted bool
	Err      error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("write %s: %v", e.Key, e.Err)
	if len(e.Written) == 0 {
		return msg
	}
	state := "left applied"
	if e.Reverted {
		state = "reverted"
	}
	return fmt.Sprintf("%s (%s %s)", msg, strings.Join(e.Written, ","), state)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
