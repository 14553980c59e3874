// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package guardrails checks proposed knob values against static per-key
// bounds and cross-key relational rules. Validation is pure: the same batch
// and bounds always produce the same issues, in the same order.
//
// Any issue is fail-closed. Callers must not start a rollout for a batch
// that produced one.
package guardrails

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leemgs/semantos/internal/models"
)

// Bound is an inclusive numeric range.
type Bound struct {
	Low  float64
	High float64
}

// Rule requires the value of Lesser to be <= the value of Greater whenever
// both knobs appear in the same batch.
type Rule struct {
	Name    string
	Lesser  string
	Greater string
	Message string
}

// DefaultRules are the relational invariants enforced on every batch.
var DefaultRules = []Rule{
	{
		Name:    "writeback_order",
		Lesser:  "vm.dirty_background_ratio",
		Greater: "vm.dirty_ratio",
		Message: "vm.dirty_ratio must be >= vm.dirty_background_ratio",
	},
	{
		Name:    "sched_granularity",
		Lesser:  "kernel.sched_min_granularity_ns",
		Greater: "kernel.sched_latency_ns",
		Message: "sched_min_granularity must be <= sched_latency",
	},
}

// Constraints are the per-call inputs to Validate.
type Constraints struct {
	// Bounds is the static table, usually catalog.Bounds().
	Bounds map[string]Bound
	// Overrides replace entries of Bounds for this call only.
	Overrides map[string]Bound
	// Rules defaults to DefaultRules when nil.
	Rules []Rule
}

// BoundsFrom converts a key -> [low, high] table.
func BoundsFrom(table map[string][2]float64) map[string]Bound {
	out := make(map[string]Bound, len(table))
	for k, v := range table {
		out[k] = Bound{Low: v[0], High: v[1]}
	}
	return out
}

// ValidationError carries the issues of a rejected batch.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "guardrail violations: " + strings.Join(e.Issues, "; ")
}

// Check runs Validate and wraps a non-empty result in a *ValidationError.
func Check(recs []models.Recommendation, c Constraints) error {
	if issues := Validate(recs, c); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Validate returns one description per violation. An empty result passes.
func Validate(recs []models.Recommendation, c Constraints) []string {
	issues := make([]string, 0)

	rules := c.Rules
	if rules == nil {
		rules = DefaultRules
	}
	related := make(map[string]bool, 2*len(rules))
	for _, r := range rules {
		related[r.Lesser] = true
		related[r.Greater] = true
	}

	for _, rec := range recs {
		b, bounded := c.bound(rec.Knob)
		if !bounded && !related[rec.Knob] {
			continue
		}
		v, err := rec.Proposed.Float()
		if err != nil {
			issues = append(issues, fmt.Sprintf("Not numeric: %s=%q", rec.Knob, rec.Proposed.String()))
			continue
		}
		if bounded && (v < b.Low || v > b.High) {
			issues = append(issues, fmt.Sprintf("Out of bounds: %s=%s not in [%s,%s]",
				rec.Knob, formatNumber(v), formatNumber(b.Low), formatNumber(b.High)))
		}
	}

	// Non-numeric values were reported above; the rule is skipped for them.
	for _, r := range rules {
		lesser, okL := lookup(recs, r.Lesser)
		greater, okG := lookup(recs, r.Greater)
		if !okL || !okG {
			continue
		}
		if lesser > greater {
			issues = append(issues, r.Message)
		}
	}
	return issues
}

func (c Constraints) bound(key string) (Bound, bool) {
	if b, ok := c.Overrides[key]; ok {
		return b, true
	}
	b, ok := c.Bounds[key]
	return b, ok
}

// lookup returns the first value proposed for key in batch order, or false
// when that value is absent or not a finite number.
func lookup(recs []models.Recommendation, key string) (float64, bool) {
	for _, rec := range recs {
		if rec.Knob != key {
			continue
		}
		v, err := rec.Proposed.Float()
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
