// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package gate

import (
	"reflect"
	"testing"

	"github.com/leemgs/semantos/internal/models"
)

func TestPartition(t *testing.T) {
	recs := []models.Recommendation{
		{ID: "a", Uncertainty: 0.30},
		{ID: "b", Uncertainty: 0.55},
		{ID: "c", Uncertainty: 0.90},
		{ID: "d", Uncertainty: 0.549},
		{ID: "e", Uncertainty: 0},
	}
	applied, vetoed := Partition(recs, 0.55)

	if got, want := IDs(applied), []string{"a", "d", "e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("applied = %v, want %v", got, want)
	}
	if got, want := IDs(vetoed), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("vetoed = %v, want %v", got, want)
	}
}

func TestPartition_VetoProperty(t *testing.T) {
	taus := []float64{0.01, 0.25, 0.5, 0.55, 0.99, 1}
	var recs []models.Recommendation
	for i := 0; i <= 100; i++ {
		recs = append(recs, models.Recommendation{ID: string(rune('A'+i%26)) + string(rune('0'+i/26)), Uncertainty: float64(i) / 100})
	}
	for _, tau := range taus {
		applied, vetoed := Partition(recs, tau)
		if len(applied)+len(vetoed) != len(recs) {
			t.Fatalf("tau %v: lost recommendations", tau)
		}
		for _, r := range vetoed {
			if r.Uncertainty < tau {
				t.Errorf("tau %v: %s vetoed with uncertainty %v", tau, r.ID, r.Uncertainty)
			}
		}
		for _, r := range applied {
			if r.Uncertainty >= tau {
				t.Errorf("tau %v: %s applied with uncertainty %v", tau, r.ID, r.Uncertainty)
			}
		}
	}
}

func TestPartition_Empty(t *testing.T) {
	applied, vetoed := Partition(nil, 0.55)
	if len(applied) != 0 || len(vetoed) != 0 {
		t.Errorf("expected empty partitions, got %v %v", applied, vetoed)
	}
}
