// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package audit

import (
	"context"
	"sync"

	"github.com/leemgs/semantos/internal/models"
)

// HistoryRecord is a persisted SLO observation tagged with its rollout.
type HistoryRecord struct {
	RecID string `json:"rec_id"`
	models.HistoryEntry
}

// Store persists audit entries and rollout history.
type Store interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
	AppendHistory(ctx context.Context, rec *HistoryRecord) error
	History(ctx context.Context, recID string, limit int) ([]HistoryRecord, error)
}

// MemoryStore is a bounded in-memory Store. The oldest tenth is discarded
// when a slice reaches maxLen.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	history []HistoryRecord
	maxLen  int
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

// Append adds an entry.
func (s *MemoryStore) Append(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= s.maxLen {
		s.entries = s.entries[s.maxLen/10+1:]
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// List returns matching entries, newest first.
func (s *MemoryStore) List(_ context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.RecommendationID != "" && e.RecommendationID != filter.RecommendationID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// AppendHistory adds a history record.
func (s *MemoryStore) AppendHistory(_ context.Context, rec *HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) >= s.maxLen {
		s.history = s.history[s.maxLen/10+1:]
	}
	s.history = append(s.history, *rec)
	return nil
}

// History returns records for recID (all rollouts when empty) in
// observation order, keeping the last limit records.
func (s *MemoryStore) History(_ context.Context, recID string, limit int) ([]HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryRecord, 0)
	for _, h := range s.history {
		if recID == "" || h.RecID == recID {
			out = append(out, h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
