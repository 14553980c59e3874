// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/leemgs/semantos/internal/audit"
	"github.com/leemgs/semantos/internal/auth"
	"github.com/leemgs/semantos/internal/authz"
	"github.com/leemgs/semantos/internal/catalog"
	"github.com/leemgs/semantos/internal/config"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/rollout"
	"github.com/leemgs/semantos/internal/sysctl"
	"github.com/leemgs/semantos/internal/telemetry"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

type stubApplier struct {
	mu       sync.Mutex
	applyErr error
	rollErr  error
	applied  int
}

func (s *stubApplier) Apply(_ context.Context, recs []models.Recommendation, _ bool) ([]models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	s.applied++
	changes := make([]models.Change, 0, len(recs))
	for _, r := range recs {
		changes = append(changes, models.Change{Key: r.Knob, Old: "60", New: r.Proposed.String()})
	}
	return changes, nil
}

func (s *stubApplier) Rollback(context.Context) ([]models.Restore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rollErr != nil {
		return nil, s.rollErr
	}
	return []models.Restore{{Key: "vm.swappiness", Restored: "60", After: "60"}}, nil
}

type fixedSLO struct {
	mu  sync.Mutex
	p95 float64
}

func (f *fixedSLO) Read(context.Context) telemetry.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return telemetry.Reading{P95: f.p95, Source: telemetry.SourceTelemetry}
}

func (f *fixedSLO) set(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.p95 = v
}

type stubPoller struct{}

func (stubPoller) Interval() time.Duration { return 10 * time.Second }
func (stubPoller) Enabled() bool           { return true }

type testServer struct {
	handler http.Handler
	applier *stubApplier
	slo     *fixedSLO
	store   *audit.MemoryStore
	jwt     *auth.JWTManager
}

func newTestServer(t *testing.T, authMode string) *testServer {
	t.Helper()

	cat := catalog.Default()
	constraints := guardrails.Constraints{Bounds: guardrails.BoundsFrom(cat.Bounds())}
	ts := &testServer{
		applier: &stubApplier{},
		slo:     &fixedSLO{p95: 20},
		store:   audit.NewMemoryStore(100),
	}
	ctrl := rollout.NewController(rollout.Config{
		Tau:          0.55,
		Stages:       []int{5, 25, 50, 100},
		SLOCeilingMs: 35,
	}, constraints, ts.applier, ts.slo)

	sec := &config.SecurityConfig{AuthMode: authMode, JWTSecret: testSecret, SessionTimeout: time.Hour}
	jwtManager, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	ts.jwt = jwtManager

	enforcer, err := authz.NewEnforcer(config.CasbinConfig{DefaultRole: auth.RoleViewer})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = []string{"*"}
	mwCfg.RateLimitDisabled = true

	h := NewHandler(HandlerDeps{
		Rollout:     ctrl,
		Audit:       ts.store,
		Poller:      stubPoller{},
		Catalog:     cat,
		Constraints: constraints,
	})
	ts.handler = NewRouter(h, NewChiMiddleware(mwCfg), auth.NewMiddleware(jwtManager, authMode), authz.NewMiddleware(enforcer)).Setup()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

const applyBody = `{"recommendations":[
	{"id":"r1","knob":"vm.swappiness","proposed":10,"uncertainty":0.2},
	{"id":"r2","knob":"vm.swappiness","proposed":"20","uncertainty":0.8}
]}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true || body["tau"] != 0.55 || body["slo_ceiling"] != float64(35) {
		t.Errorf("unexpected body %v", body)
	}
	if body["poll_interval"] != float64(10) || body["breach_action"] != rollout.BreachRevert {
		t.Errorf("unexpected policy %v", body)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestApplyAdvanceComplete(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)

	rec := ts.do(t, http.MethodPost, "/apply", applyBody, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["started"] != true || body["rec_id"] != "r1" {
		t.Errorf("apply body = %v", body)
	}
	if vetoed, _ := body["vetoed"].([]interface{}); len(vetoed) != 1 || vetoed[0] != "r2" {
		t.Errorf("vetoed = %v", body["vetoed"])
	}

	for _, want := range []float64{25, 50, 100} {
		rec = ts.do(t, http.MethodPost, "/advance", "", "")
		if got := decodeBody(t, rec)["advanced_to"]; got != want {
			t.Fatalf("advanced_to = %v, want %v", got, want)
		}
	}
	rec = ts.do(t, http.MethodPost, "/rollout/advance", "", "")
	if body := decodeBody(t, rec); body["completed"] != true {
		t.Fatalf("final advance = %v", body)
	}

	rec = ts.do(t, http.MethodGet, "/status", "", "")
	status := decodeBody(t, rec)
	if status["active"] != false || status["completed"] != true || status["percent"] != float64(100) {
		t.Errorf("status = %v", status)
	}
	if history, _ := status["history"].([]interface{}); len(history) != 4 {
		t.Errorf("history length = %d, want 4", len(history))
	}
}

func TestAdvance_BreachStops(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	ts.do(t, http.MethodPost, "/apply", applyBody, "")
	ts.slo.set(80)

	rec := ts.do(t, http.MethodPost, "/advance", "", "")
	body := decodeBody(t, rec)
	if body["stopped"] != true || body["at"] != float64(5) || body["p95"] != float64(80) {
		t.Errorf("advance body = %v", body)
	}
	if restored, _ := body["restored"].([]interface{}); len(restored) != 1 {
		t.Errorf("restored = %v", body["restored"])
	}
}

func TestAdvance_NoActiveRollout(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	rec := ts.do(t, http.MethodPost, "/advance", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != false || body["reason"] != "no_active_rollout" {
		t.Errorf("body = %v", body)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		applyErr error
		want     int
	}{
		{"malformed json", "{", nil, http.StatusBadRequest},
		{"empty list", `{"recommendations":[]}`, nil, http.StatusBadRequest},
		{"missing knob", `{"recommendations":[{"id":"r1","proposed":1,"uncertainty":0.1}]}`, nil, http.StatusBadRequest},
		{"missing uncertainty", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":1}]}`, nil, http.StatusBadRequest},
		{"uncertainty above one", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":1,"uncertainty":1.5}]}`, nil, http.StatusBadRequest},
		{"out of bounds", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":500,"uncertainty":0.1}]}`, nil, http.StatusUnprocessableEntity},
		{"no privilege", applyBody, sysctl.ErrPermission, http.StatusForbidden},
		{"write failure", applyBody, fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, config.AuthModeNone)
			ts.applier.applyErr = tt.applyErr
			rec := ts.do(t, http.MethodPost, "/apply", tt.body, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestApply_GuardrailIssues(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	body := `{"recommendations":[
		{"id":"a","knob":"vm.dirty_background_ratio","proposed":20,"uncertainty":0.1},
		{"id":"b","knob":"vm.dirty_ratio","proposed":10,"uncertainty":0.1}
	]}`
	rec := ts.do(t, http.MethodPost, "/apply", body, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	issues, _ := decodeBody(t, rec)["issues"].([]interface{})
	if len(issues) == 0 {
		t.Fatal("no issues reported")
	}
	if ts.applier.applied != 0 {
		t.Error("applier called for a rejected batch")
	}
}

func TestApply_NonFiniteValues(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "-Inf"} {
		t.Run(v, func(t *testing.T) {
			ts := newTestServer(t, config.AuthModeNone)
			body := fmt.Sprintf(`{"recommendations":[
				{"id":"a","knob":"vm.swappiness","proposed":%q,"uncertainty":0.1},
				{"id":"b","knob":"vm.dirty_background_ratio","proposed":10,"uncertainty":0.1},
				{"id":"c","knob":"vm.dirty_ratio","proposed":%q,"uncertainty":0.1}
			]}`, v, v)
			rec := ts.do(t, http.MethodPost, "/apply", body, "")
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			issues, _ := decodeBody(t, rec)["issues"].([]interface{})
			if len(issues) != 2 {
				t.Errorf("issues = %v, want 2", issues)
			}
			for _, issue := range issues {
				if s, _ := issue.(string); !strings.HasPrefix(s, "Not numeric") {
					t.Errorf("issue %q, want Not numeric", s)
				}
			}
			if ts.applier.applied != 0 {
				t.Error("applier called for a non-finite value")
			}
			if st := decodeBody(t, ts.do(t, http.MethodGet, "/status", "", "")); st["active"] == true {
				t.Error("rollout started for a rejected batch")
			}
		})
	}
}

func TestRollback(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	ts.do(t, http.MethodPost, "/apply", applyBody, "")

	rec := ts.do(t, http.MethodPost, "/rollback", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true || body["rolled_back"] != true || body["was_active"] != true {
		t.Errorf("body = %v", body)
	}

	ts.applier.rollErr = sysctl.ErrPermission
	rec = ts.do(t, http.MethodPost, "/rollback", "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)

	tests := []struct {
		name   string
		body   string
		wantOK bool
	}{
		{"within bounds", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":30,"uncertainty":0.1}]}`, true},
		{"out of bounds", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":300,"uncertainty":0.1}]}`, false},
		{"override narrows bounds", `{"recommendations":[{"id":"r1","knob":"vm.swappiness","proposed":30,"uncertainty":0.1}],"overrides":{"vm.swappiness":[0,10]}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/validate", tt.body, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if got := decodeBody(t, rec)["ok"]; got != tt.wantOK {
				t.Errorf("ok = %v, want %v", got, tt.wantOK)
			}
		})
	}
	if ts.applier.applied != 0 {
		t.Error("validate touched the applier")
	}
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	rec := ts.do(t, http.MethodGet, "/catalog", "", "")
	tunables, _ := decodeBody(t, rec)["tunables"].([]interface{})
	if len(tunables) != catalog.Default().Len() {
		t.Errorf("tunables = %d, want %d", len(tunables), catalog.Default().Len())
	}
}

func TestAuditAndReject(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	ctx := context.Background()
	for _, e := range []models.AuditEntry{
		{ID: "1", Timestamp: time.Now(), Action: models.ActionApprove, RecommendationID: "r1", Actor: "alice"},
		{ID: "2", Timestamp: time.Now(), Action: models.ActionVeto, RecommendationID: "r2", Actor: audit.ActorSystem},
	} {
		e := e
		if err := ts.store.Append(ctx, &e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	rec := ts.do(t, http.MethodGet, "/audit?action=veto", "", "")
	entries, _ := decodeBody(t, rec)["entries"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	rec = ts.do(t, http.MethodGet, "/audit?action=explode", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad action status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/audit?limit=abc", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/recommendations/r9/reject", `{"reason":"too risky"}`, "")
	body := decodeBody(t, rec)
	if body["ok"] != true || body["id"] != "r9" {
		t.Errorf("reject body = %v", body)
	}
	rec = ts.do(t, http.MethodPost, "/recommendations/r10/reject", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("reject without body status = %d", rec.Code)
	}
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t, config.AuthModeJWT)
	viewer, err := ts.jwt.GenerateToken("vera", auth.RoleViewer)
	if err != nil {
		t.Fatal(err)
	}
	operator, err := ts.jwt.GenerateToken("otto", auth.RoleOperator)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"status needs a token", http.MethodGet, "/status", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/status", "not-a-jwt", http.StatusUnauthorized},
		{"viewer reads status", http.MethodGet, "/status", viewer, http.StatusOK},
		{"viewer reads audit", http.MethodGet, "/audit", viewer, http.StatusOK},
		{"viewer cannot roll back", http.MethodPost, "/rollback", viewer, http.StatusForbidden},
		{"viewer cannot reject", http.MethodPost, "/recommendations/r1/reject", viewer, http.StatusForbidden},
		{"operator rolls back", http.MethodPost, "/rollback", operator, http.StatusOK},
		{"operator reads status", http.MethodGet, "/status", operator, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, "", tt.token)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, config.AuthModeNone)
	rec := ts.do(t, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ErrCodeNotFound) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
