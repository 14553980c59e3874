// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package sysctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
	"github.com/leemgs/semantos/internal/models"
)

// Applier writes whitelisted knobs and restores them from the backup slot.
// It serializes all access to the slot and the target.
type Applier struct {
	mu         sync.Mutex
	whitelist  map[string]string
	target     Target
	store      BackupStore
	privileged PrivilegeChecker
	atomic     bool
	now        func() time.Time
}

// Option configures an Applier.
type Option func(*Applier)

// WithTarget replaces the /proc/sys target.
func WithTarget(t Target) Option {
	return func(a *Applier) { a.target = t }
}

// WithPrivilegeChecker replaces the effective-UID check.
func WithPrivilegeChecker(p PrivilegeChecker) Option {
	return func(a *Applier) { a.privileged = p }
}

// WithAtomic enables two-phase committed writes.
func WithAtomic(enabled bool) Option {
	return func(a *Applier) { a.atomic = enabled }
}

// WithClock overrides time.Now for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Applier) { a.now = now }
}

// NewApplier creates an applier for the given key -> path whitelist.
func NewApplier(whitelist map[string]string, store BackupStore, opts ...Option) *Applier {
	wl := make(map[string]string, len(whitelist))
	for k, v := range whitelist {
		wl[k] = v
	}
	a := &Applier{
		whitelist:  wl,
		target:     ProcFS{},
		store:      store,
		privileged: RootPrivilege,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type plannedWrite struct {
	key   string
	path  string
	value string
}

// Apply backs up and then (when commit is true) writes every whitelisted
// recommendation. Knobs outside the whitelist are dropped silently. The
// returned changes pair each key's pre-apply value with the requested one.
func (a *Applier) Apply(ctx context.Context, recs []models.Recommendation, commit bool) ([]models.Change, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	plan := make([]plannedWrite, 0, len(recs))
	for _, rec := range recs {
		path, ok := a.whitelist[rec.Knob]
		if !ok {
			logging.Debug().Str("knob", rec.Knob).Str("rec_id", rec.ID).Msg("Dropping non-whitelisted knob")
			continue
		}
		plan = append(plan, plannedWrite{key: rec.Knob, path: path, value: rec.Proposed.String()})
	}
	if len(plan) == 0 {
		return []models.Change{}, nil
	}

	backup, err := a.capture(plan)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, backup); err != nil {
		metrics.BackupSaves.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist backup: %w", err)
	}
	metrics.BackupSaves.WithLabelValues("success").Inc()

	changes := make([]models.Change, 0, len(plan))
	for _, w := range plan {
		changes = append(changes, models.Change{Key: w.key, Old: backup.Entries[w.key].Value, New: w.value})
	}

	if !commit {
		logging.Info().Int("keys", len(plan)).Msg("Sysctl dry run")
		return changes, nil
	}
	if !a.privileged() {
		metrics.SysctlWrites.WithLabelValues("apply", "denied").Inc()
		return nil, ErrPermission
	}

	if a.atomic {
		err = a.writeAtomic(plan, backup)
	} else {
		err = a.writeEach(plan)
	}
	if err != nil {
		return nil, err
	}
	logging.Info().Int("keys", len(plan)).Bool("atomic", a.atomic).Msg("Sysctl values written")
	return changes, nil
}

// capture reads the current value of every planned key.
func (a *Applier) capture(plan []plannedWrite) (*Backup, error) {
	b := &Backup{
		Entries:    make(map[string]BackupEntry, len(plan)),
		CapturedAt: a.now().UTC(),
	}
	for _, w := range plan {
		if _, seen := b.Entries[w.key]; seen {
			continue
		}
		v, err := readMarked(a.target, w.path)
		if err != nil {
			return nil, err
		}
		b.Entries[w.key] = BackupEntry{Path: w.path, Value: v}
	}
	b.Seal()
	return b, nil
}

// writeEach writes keys in order. A failure leaves earlier writes in place.
func (a *Applier) writeEach(plan []plannedWrite) error {
	written := make([]string, 0, len(plan))
	for _, w := range plan {
		if err := a.target.Write(w.path, w.value); err != nil {
			metrics.SysctlWrites.WithLabelValues("apply", "error").Inc()
			return &WriteError{Key: w.key, Written: written, Err: err}
		}
		metrics.SysctlWrites.WithLabelValues("apply", "success").Inc()
		written = append(written, w.key)
	}
	return nil
}

// writeAtomic refuses to start unless every key can be restored, then
// writes all keys and restores the written ones if any write fails.
func (a *Applier) writeAtomic(plan []plannedWrite, backup *Backup) error {
	for _, w := range plan {
		if v := backup.Entries[w.key].Value; IsMarker(v) {
			return fmt.Errorf("%w: %s is %s", ErrUnrestorable, w.key, v)
		}
	}

	written := make([]plannedWrite, 0, len(plan))
	for _, w := range plan {
		err := a.target.Write(w.path, w.value)
		if err == nil {
			metrics.SysctlWrites.WithLabelValues("apply", "success").Inc()
			written = append(written, w)
			continue
		}
		metrics.SysctlWrites.WithLabelValues("apply", "error").Inc()

		keys := make([]string, 0, len(written))
		var restoreErrs []error
		for i := len(written) - 1; i >= 0; i-- {
			prev := backup.Entries[written[i].key]
			keys = append(keys, written[i].key)
			if rerr := a.target.Write(prev.Path, prev.Value); rerr != nil {
				restoreErrs = append(restoreErrs, fmt.Errorf("restore %s: %w", written[i].key, rerr))
			}
		}
		werr := &WriteError{Key: w.key, Written: keys, Reverted: len(restoreErrs) == 0, Err: err}
		if len(restoreErrs) > 0 {
			return errors.Join(append([]error{werr}, restoreErrs...)...)
		}
		return werr
	}
	return nil
}

// Rollback writes every backed-up value back and re-reads the target.
// Keys captured as markers are reported but not written. The backup slot
// is left intact.
func (a *Applier) Rollback(ctx context.Context) ([]models.Restore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	backup, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := backup.Verify(); err != nil {
		return nil, err
	}
	if !a.privileged() {
		metrics.SysctlWrites.WithLabelValues("rollback", "denied").Inc()
		return nil, ErrPermission
	}

	restores := make([]models.Restore, 0, len(backup.Entries))
	var errs []error
	for _, key := range backup.Keys() {
		entry := backup.Entries[key]
		if IsMarker(entry.Value) {
			after, _ := readMarked(a.target, entry.Path)
			restores = append(restores, models.Restore{Key: key, Restored: entry.Value, After: after})
			continue
		}
		if werr := a.target.Write(entry.Path, entry.Value); werr != nil {
			metrics.SysctlWrites.WithLabelValues("rollback", "error").Inc()
			errs = append(errs, fmt.Errorf("restore %s: %w", key, werr))
			continue
		}
		metrics.SysctlWrites.WithLabelValues("rollback", "success").Inc()
		after, rerr := readMarked(a.target, entry.Path)
		if rerr != nil {
			after = rerr.Error()
		}
		if after != entry.Value {
			logging.Warn().Str("key", key).Str("requested", entry.Value).Str("after", after).
				Msg("Kernel did not accept restored value verbatim")
		}
		restores = append(restores, models.Restore{Key: key, Restored: entry.Value, After: after})
	}

	logging.Info().Int("keys", len(restores)).Time("captured_at", backup.CapturedAt).Msg("Sysctl rollback finished")
	return restores, errors.Join(errs...)
}

// LastBackup returns the stored backup slot.
func (a *Applier) LastBackup(ctx context.Context) (*Backup, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Load(ctx)
}

// Whitelisted reports whether key may be written.
func (a *Applier) Whitelisted(key string) bool {
	_, ok := a.whitelist[key]
	return ok
}
