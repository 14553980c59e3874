// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package validation

import (
	"strings"
	"testing"
)

type testRec struct {
	ID          string  `validate:"required"`
	Knob        string  `validate:"required,sysctlkey"`
	Uncertainty float64 `validate:"gte=0,lte=1"`
}

type testBatch struct {
	Recs []testRec `validate:"required,min=1,max=2,dive"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	b := testBatch{Recs: []testRec{{ID: "r1", Knob: "vm.swappiness", Uncertainty: 0.2}}}
	if err := ValidateStruct(&b); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		batch     testBatch
		wantField string
		wantMsg   string
	}{
		{"empty batch", testBatch{}, "Recs", "Recs is required"},
		{"too many", testBatch{Recs: []testRec{
			{ID: "a", Knob: "vm.a"}, {ID: "b", Knob: "vm.b"}, {ID: "c", Knob: "vm.c"},
		}}, "Recs", "at most 2 items"},
		{"missing id", testBatch{Recs: []testRec{{Knob: "vm.swappiness"}}}, "Recs[0].ID", "is required"},
		{"bad key", testBatch{Recs: []testRec{{ID: "a", Knob: "Swappiness"}}}, "Recs[0].Knob", "dotted sysctl key"},
		{"uncertainty high", testBatch{Recs: []testRec{{ID: "a", Knob: "vm.swappiness", Uncertainty: 1.5}}}, "Recs[0].Uncertainty", "less than or equal to 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.batch)
			if err == nil {
				t.Fatal("expected error")
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField {
				t.Errorf("field = %q, want %q", fe.Field(), tt.wantField)
			}
			if !strings.Contains(fe.Error(), tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", fe.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_Details(t *testing.T) {
	err := ValidateStruct(&testBatch{Recs: []testRec{{}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Messages()) != 2 {
		t.Errorf("messages = %v, want 2 entries", err.Messages())
	}
	fields, ok := err.Details()["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("details = %#v", err.Details())
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("Error() should join messages: %q", err.Error())
	}
}
