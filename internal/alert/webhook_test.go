// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/leemgs/semantos/internal/breaker"
	"github.com/leemgs/semantos/internal/logging"
)

type capture struct {
	mu       sync.Mutex
	payloads []Payload
	headers  []http.Header
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWebhookSink_Delivers(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(http.StatusOK))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
		Timeout: time.Second,
		Breaker: breaker.DefaultSettings(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sink.Serve(ctx) }()

	sink.Notify(logging.ContextWithCorrelationID(ctx, "abcd1234"), "Rollout advanced to 25%")
	waitFor(t, func() bool { return c.count() == 1 })

	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.payloads[0]
	if p.Text != "Rollout advanced to 25%" || p.Source != "semantos" || p.EventType != "rollout_alert" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.CorrelationID != "abcd1234" {
		t.Errorf("correlation_id = %q", p.CorrelationID)
	}
	if got := c.headers[0].Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestWebhookSink_FailuresAreSwallowed(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(http.StatusInternalServerError))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{URL: srv.URL, Timeout: time.Second, Breaker: breaker.DefaultSettings()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sink.Serve(ctx) }()

	sink.Notify(ctx, "first")
	sink.Notify(ctx, "second")
	waitFor(t, func() bool { return c.count() == 2 })
}

func TestWebhookSink_UnreachableDoesNotBlock(t *testing.T) {
	sink := NewWebhookSink(WebhookConfig{URL: "http://127.0.0.1:1/hook", Timeout: 100 * time.Millisecond, Breaker: breaker.DefaultSettings()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Serve(ctx) }()

	start := time.Now()
	sink.Notify(ctx, "lost")
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("Notify blocked for %v", time.Since(start))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestWebhookSink_QueueFullDrops(t *testing.T) {
	sink := NewWebhookSink(WebhookConfig{URL: "http://127.0.0.1:1/hook", QueueSize: 2, Breaker: breaker.DefaultSettings()})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sink.Notify(ctx, "alert")
	}
	if got := len(sink.queue); got != 2 {
		t.Errorf("queue length = %d, want 2", got)
	}
}

func TestNew(t *testing.T) {
	s, worker := New(WebhookConfig{})
	if _, ok := s.(NopSink); !ok || worker != nil {
		t.Errorf("empty URL should give NopSink, got %T %v", s, worker)
	}
	s, worker = New(WebhookConfig{URL: "http://example.invalid/hook"})
	if worker == nil || s != Sink(worker) {
		t.Errorf("URL should give WebhookSink, got %T", s)
	}
	NopSink{}.Notify(context.Background(), "ignored")
}
