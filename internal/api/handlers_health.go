// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK           bool    `json:"ok"`
	Tau          float64 `json:"tau"`
	Stages       []int   `json:"stages"`
	SLOCeiling   float64 `json:"slo_ceiling"`
	PollInterval float64 `json:"poll_interval"` // seconds
	AutoPoll     bool    `json:"auto_poll"`
	BreachAction string  `json:"breach_action"`
	Commit       bool    `json:"commit"`
	Uptime       string  `json:"uptime"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	cfg := h.rollout.Config()
	resp := HealthResponse{
		OK:           true,
		Tau:          cfg.Tau,
		Stages:       cfg.Stages,
		SLOCeiling:   cfg.SLOCeilingMs,
		BreachAction: cfg.BreachAction,
		Commit:       h.commit,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.poller != nil {
		resp.PollInterval = h.poller.Interval().Seconds()
		resp.AutoPoll = h.poller.Enabled()
	}
	writeJSON(w, http.StatusOK, resp)
}
