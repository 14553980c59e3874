// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leemgs/semantos/internal/auth"
	"github.com/leemgs/semantos/internal/gate"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/models"
)

func newCatalogCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the tunables and their safety bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"tunables": cat.Tunables()})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tLOW\tHIGH\tUNIT\tPATH")
			for _, t := range cat.Tunables() {
				fmt.Fprintf(tw, "%s\t%g\t%g\t%s\t%s\n", t.Key, t.Low, t.High, t.Unit, t.Path)
			}
			return tw.Flush()
		},
	}
}

type validateReport struct {
	OK      bool     `json:"ok"`
	Issues  []string `json:"issues"`
	Applied []string `json:"applied"`
	Vetoed  []string `json:"vetoed"`
	Tau     float64  `json:"tau"`
}

// check runs the guardrails and the veto gate.
func check(recs []models.Recommendation, c guardrails.Constraints, tau float64) (validateReport, []models.Recommendation) {
	report := validateReport{Tau: tau, Issues: guardrails.Validate(recs, c)}
	report.OK = len(report.Issues) == 0
	applied, vetoed := gate.Partition(recs, tau)
	report.Applied = gate.IDs(applied)
	report.Vetoed = gate.IDs(vetoed)
	return report, applied
}

func printReport(cmd *cobra.Command, opts *globalOptions, report validateReport) error {
	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), report)
	}
	out := cmd.OutOrStdout()
	for _, issue := range report.Issues {
		fmt.Fprintln(out, "violation:", issue)
	}
	fmt.Fprintf(out, "applied: %v\nvetoed (u >= %g): %v\n", report.Applied, report.Tau, report.Vetoed)
	return nil
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var file string
	var tau float64

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check recommendations against the guardrails and the veto gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			recs, err := readRecommendations(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tau") {
				tau = cfg.Rollout.Tau
			}

			report, _ := check(recs, constraintsFor(cat), tau)
			if err := printReport(cmd, opts, report); err != nil {
				return err
			}
			if !report.OK {
				return &invalidError{issues: report.Issues}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "recommendations JSON file, - for stdin")
	cmd.Flags().Float64Var(&tau, "tau", 0, "uncertainty veto threshold (default: rollout.tau)")
	return cmd
}

func newApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		file   string
		tau    float64
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Back up and write the non-vetoed recommendations",
		Long: `Apply validates the batch, drops vetoed recommendations, captures the
current values into the backup slot and writes the rest. Without --commit it
only records the backup and prints the planned changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			recs, err := readRecommendations(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tau") {
				tau = cfg.Rollout.Tau
			}
			if !cmd.Flags().Changed("commit") {
				commit = cfg.Sysctl.Commit
			}

			report, applied := check(recs, constraintsFor(cat), tau)
			if !report.OK {
				_ = printReport(cmd, opts, report)
				return &invalidError{issues: report.Issues}
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "every recommendation was vetoed, nothing to apply")
				return printReport(cmd, opts, report)
			}

			applier, closer, err := openApplier(cfg, cat)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			changes, err := applier.Apply(ctx, applied, commit)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"commit":  commit,
					"applied": report.Applied,
					"vetoed":  report.Vetoed,
					"changes": changes,
				})
			}
			out := cmd.OutOrStdout()
			if !commit {
				fmt.Fprintln(out, "dry run, nothing written (use --commit)")
			}
			for _, c := range changes {
				fmt.Fprintf(out, "%s: %s -> %s\n", c.Key, c.Old, c.New)
			}
			if len(report.Vetoed) > 0 {
				fmt.Fprintf(out, "vetoed: %v\n", report.Vetoed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "recommendations JSON file, - for stdin")
	cmd.Flags().Float64Var(&tau, "tau", 0, "uncertainty veto threshold (default: rollout.tau)")
	cmd.Flags().BoolVar(&commit, "commit", false, "write to the kernel (default: sysctl.commit)")
	return cmd
}

func newRollbackCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Restore every value captured in the backup slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			applier, closer, err := openApplier(cfg, cat)
			if err != nil {
				return err
			}
			defer closer.Close()

			restores, err := applier.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"restored": restores})
			}
			for _, r := range restores {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: restored %s (now %s)\n", r.Key, r.Restored, r.After)
			}
			return nil
		},
	}
}

func newBackupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Show the values held in the backup slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			applier, closer, err := openApplier(cfg, cat)
			if err != nil {
				return err
			}
			defer closer.Close()

			backup, err := applier.LastBackup(cmd.Context())
			if err != nil {
				return err
			}
			if err := backup.Verify(); err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), backup)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "captured at %s\n", backup.CapturedAt.Format(time.RFC3339))
			for _, key := range backup.Keys() {
				fmt.Fprintf(out, "%s = %s\n", key, backup.Entries[key].Value)
			}
			return nil
		},
	}
}

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var user, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator or viewer JWT for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleViewer && role != auth.RoleOperator {
				return fmt.Errorf("role must be %s or %s", auth.RoleViewer, auth.RoleOperator)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			manager, err := auth.NewJWTManager(&cfg.Security)
			if err != nil {
				return err
			}
			token, err := manager.GenerateToken(user, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "subject name")
	cmd.Flags().StringVar(&role, "role", auth.RoleViewer, "viewer or operator")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
