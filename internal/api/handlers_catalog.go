// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"net/http"

	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/validation"
)

// Catalog handles GET /catalog.
func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tunables": h.catalog.Tunables()})
}

// ValidateResponse is the body of POST /validate.
type ValidateResponse struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues"`
}

// Validate handles POST /validate: guardrail validation with no side
// effects.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid recommendations", verr.Details())
		return
	}

	constraints := h.constraints
	if len(req.Overrides) > 0 {
		constraints.Overrides = guardrails.BoundsFrom(req.Overrides)
	}
	issues := guardrails.Validate(req.Recommendations, constraints)
	writeJSON(w, http.StatusOK, ValidateResponse{OK: len(issues) == 0, Issues: issues})
}
