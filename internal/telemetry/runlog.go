// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/leemgs/semantos/internal/logging"
)

// maxLineBytes caps a single run log line.
const maxLineBytes = 1 << 20

// p95Pattern matches "p95_ms=41.2" and "p95_ms: 41.2".
var p95Pattern = regexp.MustCompile(`p95_ms\s*[=:]\s*([0-9]+(?:\.[0-9]+)?)`)

// RunLogSampler takes the median of the last N p95 values found in
// {dir}/<workload>/run_*.log, newest files last.
type RunLogSampler struct {
	dir string
	n   int
}

// NewRunLogSampler creates a sampler over dir using the last n samples.
func NewRunLogSampler(dir string, n int) *RunLogSampler {
	if n <= 0 {
		n = 5
	}
	return &RunLogSampler{dir: dir, n: n}
}

// Sample returns the median or ErrNoSamples.
func (s *RunLogSampler) Sample(ctx context.Context) (float64, error) {
	if s.dir == "" {
		return 0, ErrNoSamples
	}
	files, err := filepath.Glob(filepath.Join(s.dir, "*", "run_*.log"))
	if err != nil {
		return 0, fmt.Errorf("glob run logs: %w", err)
	}
	if len(files) == 0 {
		return 0, ErrNoSamples
	}

	type logFile struct {
		path  string
		mtime int64
	}
	ordered := make([]logFile, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		ordered = append(ordered, logFile{path: f, mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].mtime != ordered[j].mtime {
			return ordered[i].mtime < ordered[j].mtime
		}
		return ordered[i].path < ordered[j].path
	})

	var samples []float64
	for _, f := range ordered {
		// Values read before an error are kept.
		vals, err := readP95(f.path)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("path", f.path).Int("kept", len(vals)).Msg("Run log read incomplete")
		}
		samples = append(samples, vals...)
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	if len(samples) > s.n {
		samples = samples[len(samples)-s.n:]
	}
	return median(samples), nil
}

func readP95(path string) ([]float64, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []float64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := parseLine(line); ok {
			out = append(out, v)
		}
	}
	return out, sc.Err()
}

func parseLine(line string) (float64, bool) {
	if strings.HasPrefix(line, "{") {
		var rec struct {
			P95 *float64 `json:"p95_ms"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err == nil && rec.P95 != nil {
			return *rec.P95, true
		}
		return 0, false
	}
	m := p95Pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
