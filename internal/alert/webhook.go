// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/leemgs/semantos/internal/breaker"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
)

// WebhookConfig configures the webhook sink.
type WebhookConfig struct {
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	QueueSize int
	// RatePerSecond and Burst bound outgoing requests.
	RatePerSecond float64
	Burst         int
	Breaker       breaker.Settings
}

// Payload is the JSON body posted to the endpoint. The text field makes it
// compatible with Slack-style incoming webhooks.
type Payload struct {
	Text          string    `json:"text"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type queued struct {
	payload Payload
}

// WebhookSink queues alerts and posts them from Serve.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker.Breaker[struct{}]
	queue   chan queued
}

// NewWebhookSink creates a sink. Serve must be running for alerts to leave
// the queue.
func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &WebhookSink{
		url:     cfg.URL,
		headers: headers,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: breaker.New[struct{}]("alert-webhook", cfg.Breaker),
		queue:   make(chan queued, cfg.QueueSize),
	}
}

// Notify enqueues text. A full queue drops the alert with a warning.
func (s *WebhookSink) Notify(ctx context.Context, text string) {
	p := Payload{
		Text:          text,
		EventType:     "rollout_alert",
		Timestamp:     time.Now().UTC(),
		Source:        "semantos",
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
	select {
	case s.queue <- queued{payload: p}:
		metrics.AlertQueueDepth.Set(float64(len(s.queue)))
	default:
		metrics.AlertsTotal.WithLabelValues("dropped").Inc()
		logging.Ctx(ctx).Warn().Str("alert", text).Msg("Alert queue full, dropping alert")
	}
}

// Serve drains the queue until ctx is cancelled. Implements suture.Service.
func (s *WebhookSink) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-s.queue:
			metrics.AlertQueueDepth.Set(float64(len(s.queue)))
			s.deliver(ctx, q.payload)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *WebhookSink) String() string {
	return "alert-webhook"
}

func (s *WebhookSink) deliver(ctx context.Context, p Payload) {
	log := logging.Ctx(logging.ContextWithCorrelationID(ctx, p.CorrelationID))

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.AlertsTotal.WithLabelValues("rate_limited").Inc()
		log.Debug().Err(err).Msg("Alert rate limiter wait aborted")
		return
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, p)
	})
	switch {
	case err == nil:
		metrics.AlertsTotal.WithLabelValues("sent").Inc()
	case breaker.IsRejected(err):
		metrics.AlertsTotal.WithLabelValues("rejected").Inc()
		log.Warn().Err(err).Str("alert", p.Text).Msg("Alert endpoint circuit open, skipping")
	default:
		metrics.AlertsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("alert", p.Text).Msg("Alert delivery failed")
	}
}

func (s *WebhookSink) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// New returns a WebhookSink for a non-empty URL, otherwise a NopSink.
// The second result is non-nil only when a worker must be supervised.
func New(cfg WebhookConfig) (Sink, *WebhookSink) {
	if cfg.URL == "" {
		return NopSink{}, nil
	}
	s := NewWebhookSink(cfg)
	return s, s
}
