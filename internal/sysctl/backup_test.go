// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package sysctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestBadgerStore(t *testing.T) *BadgerBackupStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerBackupStore(db)
}

func sealedBackup() *Backup {
	b := &Backup{
		Entries: map[string]BackupEntry{
			"vm.swappiness": {Path: "/proc/sys/vm/swappiness", Value: "60"},
		},
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC),
	}
	b.Seal()
	return b
}

func TestBackup_SealVerify(t *testing.T) {
	b := sealedBackup()
	if err := b.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	b.Entries["vm.swappiness"] = BackupEntry{Path: "/proc/sys/vm/swappiness", Value: "61"}
	if err := b.Verify(); !errors.Is(err, ErrBackupCorrupt) {
		t.Errorf("tampered backup: err = %v", err)
	}
	if err := (&Backup{}).Verify(); !errors.Is(err, ErrBackupCorrupt) {
		t.Errorf("unsealed backup: err = %v", err)
	}
}

func TestBackupStores(t *testing.T) {
	stores := map[string]BackupStore{
		"memory": NewMemoryBackupStore(),
		"badger": newTestBadgerStore(t),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Load(ctx); !errors.Is(err, ErrNoBackup) {
				t.Fatalf("empty Load err = %v, want ErrNoBackup", err)
			}

			if err := store.Save(ctx, sealedBackup()); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := got.Verify(); err != nil {
				t.Errorf("loaded backup fails checksum: %v", err)
			}

			next := &Backup{
				Entries:    map[string]BackupEntry{"vm.dirty_ratio": {Path: "/proc/sys/vm/dirty_ratio", Value: "20"}},
				CapturedAt: time.Now().UTC(),
			}
			next.Seal()
			if err := store.Save(ctx, next); err != nil {
				t.Fatal(err)
			}
			got, _ = store.Load(ctx)
			if _, ok := got.Entries["vm.swappiness"]; ok {
				t.Error("slot should be overwritten, not merged")
			}
		})
	}
}

func TestOpenBadgerBackupStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerBackupStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(ctx, sealedBackup()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadgerBackupStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if got.Entries["vm.swappiness"].Value != "60" {
		t.Errorf("entries = %+v", got.Entries)
	}
}
