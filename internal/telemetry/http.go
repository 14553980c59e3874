// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/leemgs/semantos/internal/breaker"
)

// snapshot is the subset of the telemetry collaborator's snapshot we read.
type snapshot struct {
	P95          *float64 `json:"p95_ms"`
	RqLatencyP95 *float64 `json:"rq_latency_ms"`
}

// HTTPSampler reads GET {baseURL}/snapshot.
type HTTPSampler struct {
	url     string
	client  *http.Client
	breaker *breaker.Breaker[float64]
}

// NewHTTPSampler creates a sampler with a bounded timeout and its own
// circuit breaker.
func NewHTTPSampler(baseURL string, timeout time.Duration, bs breaker.Settings) *HTTPSampler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPSampler{
		url:     strings.TrimRight(baseURL, "/") + "/snapshot",
		client:  &http.Client{Timeout: timeout},
		breaker: breaker.New[float64]("telemetry", bs),
	}
}

// Sample fetches the current p95. Every failure wraps ErrUnavailable.
func (s *HTTPSampler) Sample(ctx context.Context) (float64, error) {
	v, err := s.breaker.Execute(func() (float64, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

func (s *HTTPSampler) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	switch {
	case snap.P95 != nil:
		return *snap.P95, nil
	case snap.RqLatencyP95 != nil:
		return *snap.RqLatencyP95, nil
	default:
		return 0, fmt.Errorf("snapshot has no p95_ms or rq_latency_ms")
	}
}
