// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/leemgs/semantos/internal/catalog"
	"github.com/leemgs/semantos/internal/config"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/sysctl"
)

// privileged is the effective-UID check used before kernel writes.
var privileged sysctl.PrivilegeChecker = sysctl.RootPrivilege

// invalidError marks input rejected by the guardrails.
type invalidError struct {
	issues []string
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%d guardrail violation(s)", len(e.issues))
}

func exitCode(err error) int {
	var inv *invalidError
	if errors.As(err, &inv) {
		return exitInvalid
	}
	return exitError
}

type globalOptions struct {
	configPath  string
	catalogPath string
	backupPath  string
	procRoot    string
	jsonOutput  bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "sysctlctl",
		Short:         "Validate, apply and roll back kernel tunable recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default: CONFIG_PATH or the standard locations)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "tunable catalog YAML (default: sysctl.catalog_path or the built-in catalog)")
	flags.StringVar(&opts.backupPath, "backup-path", "", "badger backup directory (default: sysctl.backup_path)")
	flags.StringVar(&opts.procRoot, "proc-root", "", "prefix for /proc/sys paths")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON")

	root.AddCommand(
		newCatalogCmd(opts),
		newValidateCmd(opts),
		newApplyCmd(opts),
		newRollbackCmd(opts),
		newBackupCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// loadConfig layers flags over the shared configuration.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.LoadWithKoanf()
	}
	if err != nil {
		return nil, err
	}
	if o.catalogPath != "" {
		cfg.Sysctl.CatalogPath = o.catalogPath
	}
	if o.backupPath != "" {
		cfg.Sysctl.BackupPath = o.backupPath
	}
	if o.procRoot != "" {
		cfg.Sysctl.ProcRoot = o.procRoot
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Sysctl.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Sysctl.CatalogPath)
}

func constraintsFor(cat *catalog.Catalog) guardrails.Constraints {
	return guardrails.Constraints{Bounds: guardrails.BoundsFrom(cat.Bounds())}
}

// openApplier opens the persistent backup slot. The caller closes it.
func openApplier(cfg *config.Config, cat *catalog.Catalog) (*sysctl.Applier, io.Closer, error) {
	if cfg.Sysctl.BackupPath == "" {
		return nil, nil, errors.New("a backup path is required (--backup-path or SYSCTL_BACKUP_PATH)")
	}
	store, err := sysctl.OpenBadgerBackupStore(cfg.Sysctl.BackupPath)
	if err != nil {
		return nil, nil, err
	}
	applier := sysctl.NewApplier(cat.Paths(), store,
		sysctl.WithTarget(sysctl.ProcFS{Root: cfg.Sysctl.ProcRoot}),
		sysctl.WithAtomic(cfg.Sysctl.AtomicApply),
		sysctl.WithPrivilegeChecker(privileged),
	)
	return applier, store, nil
}

type recommendationFile struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// readRecommendations accepts {"recommendations": [...]} or a bare array.
// "-" reads stdin.
func readRecommendations(path string, stdin io.Reader) ([]models.Recommendation, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var wrapped recommendationFile
	err = json.Unmarshal(data, &wrapped)
	if errors.Is(err, models.ErrMissingUncertainty) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err == nil && wrapped.Recommendations != nil {
		return wrapped.Recommendations, nil
	}
	var bare []models.Recommendation
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bare, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
