// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package validation checks HTTP request bodies with go-playground/validator.
//
// It is the shape check that runs before any domain logic: required fields,
// uncertainty in [0,1], batch size limits and the sysctlkey format. Safety
// bounds on proposed values are not handled here; they belong to
// internal/guardrails, which reports issues in its own fail-closed format.
//
//	type ApplyRequest struct {
//	    Recommendations []models.Recommendation `validate:"required,min=1,max=256,dive"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, ErrCodeValidation, verr.Error(), verr.Details())
//	    return
//	}
package validation
