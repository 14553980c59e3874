// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetRolloutState(t *testing.T) {
	SetRolloutState(true, 25)
	if got := testutil.ToFloat64(RolloutActive); got != 1 {
		t.Errorf("rollout_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RolloutPercent); got != 25 {
		t.Errorf("rollout_percent = %v, want 25", got)
	}

	SetRolloutState(false, 0)
	if got := testutil.ToFloat64(RolloutActive); got != 0 {
		t.Errorf("rollout_active = %v, want 0", got)
	}
}

func TestRecordSLOCheck(t *testing.T) {
	before := testutil.ToFloat64(SLOChecks.WithLabelValues("poller", "breach"))
	RecordSLOCheck("poller", 80, false)
	after := testutil.ToFloat64(SLOChecks.WithLabelValues("poller", "breach"))
	if after != before+1 {
		t.Errorf("breach counter = %v, want %v", after, before+1)
	}
	if got := testutil.ToFloat64(SLOLatestP95); got != 80 {
		t.Errorf("slo_latest_p95_ms = %v, want 80", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/status", "200"))
	RecordAPIRequest("GET", "/status", "200", 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/status", "200"))
	if after != before+1 {
		t.Errorf("api_requests_total = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+1 {
		t.Errorf("api_active_requests = %v, want %v", got, base+1)
	}
}
