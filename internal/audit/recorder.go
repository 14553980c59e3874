// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
	"github.com/leemgs/semantos/internal/models"
)

// Actors recorded for automated decisions.
const (
	ActorSystem = "system"
	ActorPoller = "slo-poller"
)

type write struct {
	entry   *models.AuditEntry
	history *HistoryRecord
}

// Recorder writes audit entries and history asynchronously.
type Recorder struct {
	store  Store
	writes chan write
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRecorder starts the background writer.
func NewRecorder(store Store, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		store:  store,
		writes: make(chan write, bufferSize),
		stop:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			for {
				select {
				case w := <-r.writes:
					r.persist(w)
				default:
					return
				}
			}
		case w := <-r.writes:
			r.persist(w)
		}
	}
}

func (r *Recorder) persist(w write) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if w.entry != nil {
		err = r.store.Append(ctx, w.entry)
	} else {
		err = r.store.AppendHistory(ctx, w.history)
	}
	if err != nil {
		metrics.AuditWrites.WithLabelValues("error").Inc()
		logging.Error().Err(err).Msg("Failed to persist audit record")
		return
	}
	metrics.AuditWrites.WithLabelValues("success").Inc()
}

func (r *Recorder) enqueue(ctx context.Context, w write) {
	select {
	case r.writes <- w:
	default:
		metrics.AuditWrites.WithLabelValues("dropped").Inc()
		logging.Ctx(ctx).Warn().Msg("Audit buffer full, dropping record")
	}
}

// Record queues an audit entry.
func (r *Recorder) Record(ctx context.Context, action, recID, actor, detail string) {
	entry := &models.AuditEntry{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		Action:           action,
		RecommendationID: recID,
		Actor:            actor,
		Detail:           detail,
	}
	logging.Ctx(ctx).Info().Str("action", action).Str("rec_id", recID).Str("actor", actor).Msg("Audit")
	r.enqueue(ctx, write{entry: entry})
}

// RecordHistory queues an SLO observation for recID.
func (r *Recorder) RecordHistory(ctx context.Context, recID string, h models.HistoryEntry) {
	r.enqueue(ctx, write{history: &HistoryRecord{RecID: recID, HistoryEntry: h}})
}

// List reads entries from the store.
func (r *Recorder) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	return r.store.List(ctx, filter)
}

// History reads history records from the store.
func (r *Recorder) History(ctx context.Context, recID string, limit int) ([]HistoryRecord, error) {
	return r.store.History(ctx, recID, limit)
}

// Close flushes queued writes and stops the writer.
func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
	return nil
}
