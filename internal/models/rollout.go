// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

/*
rollout.go - Rollout Controller Models

This file defines the data exchanged between the rollout controller, the
privileged applier and the HTTP surface.

Key Structures:
  - Tunable: catalog entry for a kernel knob (bounds, step, unit, write target)
  - Recommendation: a proposed knob change with its model uncertainty
  - HistoryEntry: one SLO observation taken while a rollout was active
  - RolloutSnapshot: deep copy of the controller state returned by status
  - Change / Restore: per-key results of an apply or a rollback
*/

package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// History sources.
const (
	SourcePoller = "poller"
	SourceManual = "manual"
)

// Tunable describes a kernel knob the controller is allowed to touch.
type Tunable struct {
	Key  string  `json:"key" yaml:"key"`
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
	Step float64 `json:"step,omitempty" yaml:"step"`
	Unit string  `json:"unit,omitempty" yaml:"unit"`
	Note string  `json:"note,omitempty" yaml:"note"`
	Path string  `json:"path" yaml:"path"`
}

// Value is a proposed knob value. Upstream reasoners emit numbers or
// strings interchangeably, so both JSON forms decode into the same text.
type Value string

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Value(n.String())
	return nil
}

// Float parses the value as a finite number. NaN and infinities are
// rejected since no bound comparison holds for them.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q is not finite", string(v))
	}
	return f, nil
}

// String returns the raw value text.
func (v Value) String() string {
	return string(v)
}

// Recommendation is a single proposed knob change produced by an upstream
// reasoning component. The controller never mutates it.
type Recommendation struct {
	ID             string  `json:"id" validate:"required,max=128"`
	Knob           string  `json:"knob" validate:"required,max=128"`
	Proposed       Value   `json:"proposed" validate:"required"`
	Uncertainty    float64 `json:"uncertainty" validate:"gte=0,lte=1"`
	Rationale      string  `json:"rationale,omitempty"`
	ExpectedImpact string  `json:"expected_impact,omitempty"`
	Explanation    string  `json:"explanation,omitempty"`
}

// ErrMissingUncertainty is returned when a decoded recommendation has no
// uncertainty. A zero default would pass every veto threshold.
var ErrMissingUncertainty = errors.New("recommendation is missing uncertainty")

// UnmarshalJSON decodes a recommendation and requires the uncertainty field.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	type plain Recommendation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var presence struct {
		Uncertainty *float64 `json:"uncertainty"`
	}
	if err := json.Unmarshal(data, &presence); err != nil {
		return err
	}
	if presence.Uncertainty == nil {
		if p.ID != "" {
			return fmt.Errorf("%w: %s", ErrMissingUncertainty, p.ID)
		}
		return ErrMissingUncertainty
	}
	*r = Recommendation(p)
	return nil
}

// HistoryEntry is one SLO observation. Entries are immutable once appended.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Percent   int       `json:"percent"`
	P95       float64   `json:"p95"`
	Passed    bool      `json:"passed"`
	Source    string    `json:"source"`
}

// RolloutSnapshot is a point-in-time copy of the rollout state.
type RolloutSnapshot struct {
	Active     bool           `json:"active"`
	RecID      string         `json:"rec_id,omitempty"`
	Percent    int            `json:"percent"`
	StageIndex int            `json:"stage_index"`
	Stages     []int          `json:"stages"`
	Completed  bool           `json:"completed"`
	Breaches   int            `json:"breaches"`
	History    []HistoryEntry `json:"history"`
	Vetoed     []string       `json:"vetoed"`
}

// Change is the outcome of applying one knob: the value read before the
// write and the value requested.
type Change struct {
	Key string `json:"key"`
	Old string `json:"old"`
	New string `json:"new"`
}

// Restore is the outcome of rolling back one knob. After is re-read from
// the target and may differ from Restored if the kernel clamped the write.
type Restore struct {
	Key      string `json:"key"`
	Restored string `json:"restored"`
	After    string `json:"after"`
}
