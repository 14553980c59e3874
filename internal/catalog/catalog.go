// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

// Package catalog holds the whitelist of kernel tunables: their safety
// bounds, step, unit and the /proc/sys file each one is written through.
//
// The built-in catalog is embedded; an operator can replace it with a YAML
// file of the same shape (sysctl.catalog_path).
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leemgs/semantos/internal/models"
)

// ProcSysRoot is the mount point of the sysctl tree.
const ProcSysRoot = "/proc/sys"

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid tunable catalog")

type document struct {
	Tunables []models.Tunable `yaml:"tunables"`
}

// Catalog is an immutable, keyed set of tunables.
type Catalog struct {
	byKey map[string]models.Tunable
	keys  []string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		// The embedded document is covered by tests.
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load returns the catalog at path, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Tunables) == 0 {
		return nil, fmt.Errorf("%w: no tunables", ErrInvalidCatalog)
	}

	c := &Catalog{byKey: make(map[string]models.Tunable, len(doc.Tunables))}
	for _, t := range doc.Tunables {
		t.Key = strings.TrimSpace(t.Key)
		if t.Key == "" {
			return nil, fmt.Errorf("%w: tunable with empty key", ErrInvalidCatalog)
		}
		if _, dup := c.byKey[t.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrInvalidCatalog, t.Key)
		}
		if t.Low > t.High {
			return nil, fmt.Errorf("%w: %s low %v > high %v", ErrInvalidCatalog, t.Key, t.Low, t.High)
		}
		if t.Path == "" {
			t.Path = PathFor(t.Key)
		}
		if !strings.HasPrefix(filepath.Clean(t.Path), ProcSysRoot+"/") {
			return nil, fmt.Errorf("%w: %s path %s outside %s", ErrInvalidCatalog, t.Key, t.Path, ProcSysRoot)
		}
		c.byKey[t.Key] = t
		c.keys = append(c.keys, t.Key)
	}
	sort.Strings(c.keys)
	return c, nil
}

// PathFor maps a dotted sysctl key to its /proc/sys file.
func PathFor(key string) string {
	return ProcSysRoot + "/" + strings.ReplaceAll(key, ".", "/")
}

// Get returns the tunable for key.
func (c *Catalog) Get(key string) (models.Tunable, bool) {
	t, ok := c.byKey[key]
	return t, ok
}

// Tunables returns all entries ordered by key.
func (c *Catalog) Tunables() []models.Tunable {
	out := make([]models.Tunable, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.byKey[k])
	}
	return out
}

// Bounds returns key -> [low, high].
func (c *Catalog) Bounds() map[string][2]float64 {
	out := make(map[string][2]float64, len(c.byKey))
	for k, t := range c.byKey {
		out[k] = [2]float64{t.Low, t.High}
	}
	return out
}

// Paths returns the write whitelist: key -> target file.
func (c *Catalog) Paths() map[string]string {
	out := make(map[string]string, len(c.byKey))
	for k, t := range c.byKey {
		out[k] = t.Path
	}
	return out
}

// Len returns the number of tunables.
func (c *Catalog) Len() int {
	return len(c.keys)
}
