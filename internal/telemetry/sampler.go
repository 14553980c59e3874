// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package telemetry produces the p95 latency sample the SLO gate compares
// against its ceiling.
//
// Sampling falls through three sources in order: the live telemetry
// snapshot, the median of recent persisted run logs, and finally a
// pass-through zero. A missing signal is never an error for the caller.
package telemetry

import (
	"context"
	"errors"

	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
)

// Sampler sources.
const (
	SourceTelemetry = "telemetry"
	SourceRunLog    = "runlog"
	SourceFallback  = "fallback"
)

var (
	// ErrUnavailable is returned when the live telemetry source cannot be
	// reached, answers with an error, or its breaker is open.
	ErrUnavailable = errors.New("telemetry unavailable")

	// ErrNoSamples is returned when no run log holds a p95 value.
	ErrNoSamples = errors.New("no p95 samples")
)

// Sampler returns a p95 latency in milliseconds.
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}

// Reading is a sample and the source that produced it.
type Reading struct {
	P95    float64
	Source string
}

// Chain tries the live sampler, then the run-log sampler, then yields 0.
// Either sampler may be nil.
type Chain struct {
	Live Sampler
	Logs Sampler
}

// Read never fails. A zero from the live source counts as "no signal" and
// falls through to the logs.
func (c *Chain) Read(ctx context.Context) Reading {
	if c.Live != nil {
		v, err := c.Live.Sample(ctx)
		switch {
		case err != nil:
			logging.Ctx(ctx).Debug().Err(err).Msg("Live telemetry unavailable, trying run logs")
		case v > 0:
			metrics.SLOSampleSource.WithLabelValues(SourceTelemetry).Inc()
			return Reading{P95: v, Source: SourceTelemetry}
		}
	}
	if c.Logs != nil {
		v, err := c.Logs.Sample(ctx)
		if err == nil {
			metrics.SLOSampleSource.WithLabelValues(SourceRunLog).Inc()
			return Reading{P95: v, Source: SourceRunLog}
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("No run log samples, passing through")
	}
	metrics.SLOSampleSource.WithLabelValues(SourceFallback).Inc()
	return Reading{P95: 0, Source: SourceFallback}
}

// Static always returns the same value. Useful for tests and demos.
type Static float64

// Sample returns s.
func (s Static) Sample(context.Context) (float64, error) {
	return float64(s), nil
}
