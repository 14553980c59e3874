// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package sysctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Markers recorded in place of a value that could not be read.
const (
	MarkerMissing    = "<missing>"
	markerPermPrefix = "<perm:"
)

// IsMarker reports whether v is an unreadable-target marker.
func IsMarker(v string) bool {
	return v == MarkerMissing || strings.HasPrefix(v, markerPermPrefix)
}

// Target reads and writes sysctl files.
type Target interface {
	Read(path string) (string, error)
	Write(path, value string) error
}

// ProcFS is the real /proc/sys target. Root is prepended to every path and
// is empty outside tests.
type ProcFS struct {
	Root string
}

func (p ProcFS) resolve(path string) string {
	if p.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, filepath.Clean(path))
}

// Read returns the trimmed file content.
func (p ProcFS) Read(path string) (string, error) {
	data, err := os.ReadFile(p.resolve(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the value. The file must already exist.
func (p ProcFS) Write(path, value string) error {
	f, err := os.OpenFile(p.resolve(path), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readMarked reads path, turning missing and permission errors into markers.
func readMarked(t Target, path string) (string, error) {
	v, err := t.Read(path)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, fs.ErrNotExist):
		return MarkerMissing, nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("%s%v>", markerPermPrefix, err), nil
	default:
		return "", fmt.Errorf("read %s: %w", path, err)
	}
}

// PrivilegeChecker reports whether committed writes are allowed.
type PrivilegeChecker func() bool

// RootPrivilege allows writes only for effective UID 0.
func RootPrivilege() bool {
	return unix.Geteuid() == 0
}

// AlwaysPrivileged allows every write. Intended for tests and sandboxed targets.
func AlwaysPrivileged() bool {
	return true
}
