// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package rollout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
)

// Ticker is the part of Controller the poller drives.
type Ticker interface {
	Tick(ctx context.Context) TickResult
}

// Poller periodically checks the SLO of the active rollout stage.
//
// It implements suture.Service. A tick's error or panic is logged and the
// loop continues; Serve only returns when its context is canceled.
type Poller struct {
	ticker   Ticker
	interval time.Duration
	enabled  atomic.Bool
}

// NewPoller creates a poller. A non-positive interval defaults to 10s.
func NewPoller(t Ticker, interval time.Duration, enabled bool) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	p := &Poller{ticker: t, interval: interval}
	p.enabled.Store(enabled)
	return p
}

// SetEnabled toggles automatic polling at runtime.
func (p *Poller) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Enabled reports whether ticks sample the SLO.
func (p *Poller) Enabled() bool {
	return p.enabled.Load()
}

// Interval returns the tick interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Serve implements suture.Service.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", p.interval).Bool("enabled", p.Enabled()).Msg("SLO poller started")

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("SLO poller stopped")
			return ctx.Err()
		case <-t.C:
			p.RunOnce(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (p *Poller) String() string {
	return "slo-poller"
}

// RunOnce performs a single tick. It never panics.
func (p *Poller) RunOnce(ctx context.Context) (result TickResult) {
	if !p.Enabled() {
		return TickResult{Outcome: OutcomeNoActive}
	}
	ctx = logging.ContextWithNewCorrelationID(ctx)

	defer func() {
		if r := recover(); r != nil {
			metrics.PollerTicks.WithLabelValues("panic").Inc()
			logging.Ctx(ctx).Error().Str("panic", fmt.Sprint(r)).Msg("SLO poller tick panicked")
			result = TickResult{Outcome: OutcomeNoActive}
		}
	}()

	result = p.ticker.Tick(ctx)
	metrics.PollerTicks.WithLabelValues(tickLabel(result)).Inc()

	if result.Revert != nil && result.Revert.Err != nil {
		metrics.PollerTicks.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Error().Err(result.Revert.Err).Msg("SLO poller rollback failed")
	}
	return result
}

func tickLabel(r TickResult) string {
	switch r.Outcome {
	case OutcomeNoActive:
		return "idle"
	case OutcomePassed:
		return "pass"
	case OutcomeBreach:
		return "breach"
	case OutcomeStopped:
		return "halted"
	default:
		return string(r.Outcome)
	}
}
