// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/validation"
)

// Audit handles GET /audit.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	q, verr, err := parseAuditQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid audit query", verr.Details())
		return
	}

	entries := []models.AuditEntry{}
	if h.audit != nil {
		list, err := h.audit.List(r.Context(), models.AuditFilter{
			Action:           q.Action,
			RecommendationID: q.RecommendationID,
			Limit:            q.Limit,
		})
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Audit query failed")
			NewResponseWriter(w, r).InternalError("audit query failed")
			return
		}
		if list != nil {
			entries = list
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// Reject handles POST /recommendations/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if verr := validation.ValidateStruct(rejectTarget{ID: id}); verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid recommendation id", verr.Details())
		return
	}

	var req RejectRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid reject request", verr.Details())
		return
	}

	h.rollout.Reject(r.Context(), id, req.Reason)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
}
