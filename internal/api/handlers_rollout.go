// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"errors"
	"net/http"

	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/sysctl"
	"github.com/leemgs/semantos/internal/validation"
)

// Apply handles POST /apply.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid recommendations", verr.Details())
		return
	}

	result, err := h.rollout.Apply(r.Context(), req.Recommendations)
	var gerr *guardrails.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.As(err, &gerr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"issues": gerr.Issues})
	case errors.Is(err, sysctl.ErrPermission):
		NewResponseWriter(w, r).Forbidden(err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Apply failed")
		NewResponseWriter(w, r).InternalError("apply failed")
	}
}

// Advance handles POST /advance and POST /rollout/advance.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rollout.Advance(r.Context()))
}

// Rollback handles POST /rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	result, err := h.rollout.Rollback(r.Context())
	if err != nil {
		if errors.Is(err, sysctl.ErrPermission) {
			NewResponseWriter(w, r).Forbidden(err.Error())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Rollback failed")
		NewResponseWriter(w, r).InternalError("rollback failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.rollout.Status())
}
