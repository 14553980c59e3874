// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ApplyRequest is the body of POST /apply and POST /validate.
type ApplyRequest struct {
	Recommendations []models.Recommendation `json:"recommendations" validate:"required,min=1,max=256,dive"`
	// Overrides replaces catalog bounds for this call only (validate only).
	Overrides map[string][2]float64 `json:"overrides,omitempty" validate:"omitempty,dive,keys,sysctlkey,endkeys"`
}

// RejectRequest is the body of POST /recommendations/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

// rejectTarget validates the path parameter.
type rejectTarget struct {
	ID string `validate:"required,max=128"`
}

// AuditQuery holds the GET /audit query parameters.
type AuditQuery struct {
	Action           string `validate:"omitempty,oneof=approve reject veto rollback halt complete"`
	RecommendationID string `validate:"omitempty,max=128"`
	Limit            int    `validate:"gte=0,lte=1000"`
}

// decodeJSON decodes a bounded request body into v. An empty body leaves v
// unchanged when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) error {
	if r.Body == nil || r.ContentLength == 0 && allowEmpty {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseAuditQuery reads and validates the audit filter.
func parseAuditQuery(r *http.Request) (AuditQuery, *validation.RequestValidationError, error) {
	q := AuditQuery{
		Action:           r.URL.Query().Get("action"),
		RecommendationID: r.URL.Query().Get("recommendation_id"),
		Limit:            100,
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, nil, fmt.Errorf("limit must be an integer")
		}
		q.Limit = n
	}
	if verr := validation.ValidateStruct(q); verr != nil {
		return q, verr, nil
	}
	return q, nil, nil
}
