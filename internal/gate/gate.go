// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package gate splits a recommendation batch by model uncertainty.
package gate

import "github.com/leemgs/semantos/internal/models"

// Partition returns the recommendations to apply and those vetoed. A
// recommendation is vetoed iff its uncertainty is >= tau, so ties veto.
// Batch order is preserved in both slices.
func Partition(recs []models.Recommendation, tau float64) (applied, vetoed []models.Recommendation) {
	applied = make([]models.Recommendation, 0, len(recs))
	vetoed = make([]models.Recommendation, 0)
	for _, rec := range recs {
		if rec.Uncertainty >= tau {
			vetoed = append(vetoed, rec)
			continue
		}
		applied = append(applied, rec)
	}
	return applied, vetoed
}

// IDs returns the ids of recs in order.
func IDs(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
