// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package sysctl

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"
)

// BackupEntry is the pre-change value of one key.
type BackupEntry struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Backup is the single-slot snapshot taken before every apply.
type Backup struct {
	Entries    map[string]BackupEntry `json:"entries"`
	CapturedAt time.Time              `json:"captured_at"`
	Checksum   string                 `json:"checksum"`
}

// Keys returns the backed-up keys in sorted order.
func (b *Backup) Keys() []string {
	keys := make([]string, 0, len(b.Entries))
	for k := range b.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Seal computes and stores the checksum.
func (b *Backup) Seal() {
	b.Checksum = b.digest()
}

// Verify checks the stored checksum.
func (b *Backup) Verify() error {
	if b.Checksum == "" || b.Checksum != b.digest() {
		return ErrBackupCorrupt
	}
	return nil
}

func (b *Backup) digest() string {
	h := blake3.New()
	_, _ = h.Write([]byte(b.CapturedAt.UTC().Format(time.RFC3339Nano)))
	for _, k := range b.Keys() {
		e := b.Entries[k]
		_, _ = h.Write([]byte("\x00" + k + "\x00" + e.Path + "\x00" + e.Value))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BackupStore persists the single backup slot. Load returns ErrNoBackup
// when nothing has been saved.
type BackupStore interface {
	Save(ctx context.Context, b *Backup) error
	Load(ctx context.Context) (*Backup, error)
}

// MemoryBackupStore keeps the slot in memory. Used by tests and dry-run tools.
type MemoryBackupStore struct {
	mu     sync.RWMutex
	backup []byte
}

// NewMemoryBackupStore creates an empty in-memory store.
func NewMemoryBackupStore() *MemoryBackupStore {
	return &MemoryBackupStore{}
}

// Save overwrites the slot.
func (s *MemoryBackupStore) Save(_ context.Context, b *Backup) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	s.mu.Lock()
	s.backup = data
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the slot.
func (s *MemoryBackupStore) Load(_ context.Context) (*Backup, error) {
	s.mu.RLock()
	data := s.backup
	s.mu.RUnlock()
	if data == nil {
		return nil, ErrNoBackup
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal backup: %w", err)
	}
	return &b, nil
}

const backupKey = "sysctl:backup:latest"

// BadgerBackupStore keeps the slot in BadgerDB so it survives restarts.
type BadgerBackupStore struct {
	db *badger.DB
}

// NewBadgerBackupStore wraps an open database.
func NewBadgerBackupStore(db *badger.DB) *BadgerBackupStore {
	return &BadgerBackupStore{db: db}
}

// OpenBadgerBackupStore opens (or creates) a database in dir. Writes are
// synced so a saved backup is on disk before any sysctl write follows.
func OpenBadgerBackupStore(dir string) (*BadgerBackupStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil).WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open backup store %s: %w", dir, err)
	}
	return &BadgerBackupStore{db: db}, nil
}

// Save overwrites the slot.
func (s *BadgerBackupStore) Save(_ context.Context, b *Backup) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(backupKey), data)
	}); err != nil {
		return fmt.Errorf("set backup: %w", err)
	}
	return nil
}

// Load reads the slot.
func (s *BadgerBackupStore) Load(_ context.Context) (*Backup, error) {
	var b Backup
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(backupKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoBackup
		}
		if err != nil {
			return fmt.Errorf("get backup: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &b)
		})
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Close closes the underlying database.
func (s *BadgerBackupStore) Close() error {
	return s.db.Close()
}
