// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package rollout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leemgs/semantos/internal/alert"
	"github.com/leemgs/semantos/internal/audit"
	"github.com/leemgs/semantos/internal/gate"
	"github.com/leemgs/semantos/internal/guardrails"
	"github.com/leemgs/semantos/internal/logging"
	"github.com/leemgs/semantos/internal/metrics"
	"github.com/leemgs/semantos/internal/models"
	"github.com/leemgs/semantos/internal/sysctl"
	"github.com/leemgs/semantos/internal/telemetry"
)

// Breach actions.
const (
	BreachRevert    = "revert"
	BreachStateOnly = "state_only"
)

// Config holds the controller's rollout policy.
type Config struct {
	Tau          float64
	Stages       []int
	SLOCeilingMs float64
	// BreachThreshold is the number of consecutive poller breaches that
	// halt a rollout. Manual advance always halts on the first breach.
	BreachThreshold int
	BreachAction    string
	// Commit makes Apply write to the kernel instead of a dry run.
	Commit bool
	// AutoAdvance lets a passing poller tick move to the next stage.
	AutoAdvance bool
}

// Applier is the privileged writer the controller drives.
type Applier interface {
	Apply(ctx context.Context, recs []models.Recommendation, commit bool) ([]models.Change, error)
	Rollback(ctx context.Context) ([]models.Restore, error)
}

// SLOReader produces the p95 sample for the current stage.
type SLOReader interface {
	Read(ctx context.Context) telemetry.Reading
}

// Auditor records decisions and observations.
type Auditor interface {
	Record(ctx context.Context, action, recID, actor, detail string)
	RecordHistory(ctx context.Context, recID string, h models.HistoryEntry)
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, string, string, string) {}
func (nopAuditor) RecordHistory(context.Context, string, models.HistoryEntry) {}

// state is the single mutable rollout record.
type state struct {
	active     bool
	recID      string
	stageIndex int
	completed  bool
	breaches   int
	history    []models.HistoryEntry
	vetoed     []string
	vetoSet    map[string]struct{}
}

// Controller is the rollout state machine.
type Controller struct {
	// transition serializes whole transitions, including SLO sampling.
	transition sync.Mutex
	// mu guards st for the short critical sections and for Status.
	mu sync.RWMutex
	st state

	cfg         Config
	constraints guardrails.Constraints
	applier     Applier
	slo         SLOReader
	alerts      alert.Sink
	auditor     Auditor
	now         func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithAlerts sets the alert sink.
func WithAlerts(s alert.Sink) Option {
	return func(c *Controller) { c.alerts = s }
}

// WithAuditor sets the audit recorder.
func WithAuditor(a Auditor) Option {
	return func(c *Controller) { c.auditor = a }
}

// WithClock overrides time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an idle controller.
func NewController(cfg Config, constraints guardrails.Constraints, applier Applier, slo SLOReader, opts ...Option) *Controller {
	if cfg.BreachThreshold <= 0 {
		cfg.BreachThreshold = 1
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = []int{100}
	}
	if cfg.BreachAction == "" {
		cfg.BreachAction = BreachRevert
	}
	cfg.Stages = append([]int(nil), cfg.Stages...)

	c := &Controller{
		st:          state{vetoSet: make(map[string]struct{})},
		cfg:         cfg,
		constraints: constraints,
		applier:     applier,
		slo:         slo,
		alerts:      alert.NopSink{},
		auditor:     nopAuditor{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.SetRolloutState(false, 0)
	return c
}

// Config returns the controller's policy.
func (c *Controller) Config() Config {
	cfg := c.cfg
	cfg.Stages = append([]int(nil), c.cfg.Stages...)
	return cfg
}

// ApplyResult is the outcome of Apply.
type ApplyResult struct {
	Applied []string        `json:"applied"`
	Vetoed  []string        `json:"vetoed"`
	Tau     float64         `json:"tau"`
	Started bool            `json:"started"`
	RecID   string          `json:"rec_id,omitempty"`
	Changes []models.Change `json:"changes,omitempty"`
}

// Apply validates a batch, gates it on uncertainty and starts a rollout
// when something passes and none is active. A guardrail violation returns a
// *guardrails.ValidationError and changes nothing. An applier failure
// (sysctl.ErrPermission included) aborts the start after veto bookkeeping.
func (c *Controller) Apply(ctx context.Context, recs []models.Recommendation) (*ApplyResult, error) {
	c.transition.Lock()
	defer c.transition.Unlock()

	log := logging.Ctx(ctx)
	actor := audit.ActorFromContext(ctx)

	if err := guardrails.Check(recs, c.constraints); err != nil {
		metrics.GuardrailRejections.Inc()
		log.Warn().Err(err).Int("batch", len(recs)).Msg("Batch rejected by guardrails")
		return nil, err
	}

	applied, vetoed := gate.Partition(recs, c.cfg.Tau)
	metrics.RecommendationsGated.WithLabelValues("applied").Add(float64(len(applied)))
	metrics.RecommendationsGated.WithLabelValues("vetoed").Add(float64(len(vetoed)))

	c.mu.Lock()
	for _, r := range vetoed {
		if _, seen := c.st.vetoSet[r.ID]; !seen {
			c.st.vetoSet[r.ID] = struct{}{}
			c.st.vetoed = append(c.st.vetoed, r.ID)
		}
	}
	active := c.st.active
	c.mu.Unlock()

	for _, r := range vetoed {
		c.auditor.Record(ctx, models.ActionVeto, r.ID, audit.ActorSystem,
			fmt.Sprintf("uncertainty %.2f >= tau %.2f", r.Uncertainty, c.cfg.Tau))
	}

	result := &ApplyResult{
		Applied: gate.IDs(applied),
		Vetoed:  gate.IDs(vetoed),
		Tau:     c.cfg.Tau,
	}
	if len(applied) == 0 {
		return result, nil
	}
	if active {
		for _, r := range applied {
			c.auditor.Record(ctx, models.ActionApprove, r.ID, actor, "accepted while another rollout is active")
		}
		log.Info().Strs("applied", result.Applied).Msg("Rollout already active, batch recorded only")
		return result, nil
	}

	changes, err := c.applier.Apply(ctx, applied, c.cfg.Commit)
	if err != nil {
		log.Error().Err(err).Bool("commit", c.cfg.Commit).Msg("Privileged apply failed, rollout not started")
		return result, fmt.Errorf("apply recommendations: %w", err)
	}

	recID := applied[0].ID
	c.mu.Lock()
	c.st.active = true
	c.st.recID = recID
	c.st.stageIndex = 0
	c.st.completed = false
	c.st.breaches = 0
	percent := c.cfg.Stages[0]
	c.mu.Unlock()

	for _, r := range applied {
		c.auditor.Record(ctx, models.ActionApprove, r.ID, actor, "")
	}
	metrics.SetRolloutState(true, percent)
	metrics.RolloutTransitions.WithLabelValues("started").Inc()
	log.Info().Str("rec_id", recID).Int("percent", percent).Bool("commit", c.cfg.Commit).Msg("Rollout started")
	c.alerts.Notify(ctx, fmt.Sprintf("Rollout %s started at %d%%", recID, percent))

	result.Started = true
	result.RecID = recID
	result.Changes = changes
	return result, nil
}

// Outcome names the result of an Advance or a poller tick.
type Outcome string

// Outcomes.
const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeStopped   Outcome = "stopped"
	OutcomeCompleted Outcome = "completed"
	OutcomeNoActive  Outcome = "no_active_rollout"
	OutcomePassed    Outcome = "passed"
	OutcomeBreach    Outcome = "breach"
)

// AdvanceResult is the outcome of Advance.
type AdvanceResult struct {
	Outcome Outcome
	// Percent is the new stage on advance and the halted stage on stop.
	Percent int
	P95     float64
	// Revert holds the privileged rollback outcome when a breach reverted.
	Revert *RevertResult
}

// RevertResult is the privileged rollback triggered by a breach.
type RevertResult struct {
	Restored []models.Restore
	Err      error
}

// MarshalJSON renders the wire shapes of POST /advance.
func (r AdvanceResult) MarshalJSON() ([]byte, error) {
	var body map[string]interface{}
	switch r.Outcome {
	case OutcomeAdvanced:
		body = map[string]interface{}{"advanced_to": r.Percent}
	case OutcomeStopped:
		body = map[string]interface{}{"stopped": true, "at": r.Percent, "p95": r.P95}
		if r.Revert != nil {
			body["restored"] = r.Revert.Restored
			if r.Revert.Err != nil {
				body["backup_error"] = r.Revert.Err.Error()
			}
		}
	case OutcomeCompleted:
		body = map[string]interface{}{"completed": true}
	default:
		body = map[string]interface{}{"ok": false, "reason": string(OutcomeNoActive)}
	}
	return marshal(body)
}

// Advance samples the SLO for the current stage and moves forward, halts,
// or completes. With no active rollout it reports OutcomeNoActive.
func (c *Controller) Advance(ctx context.Context) AdvanceResult {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.RLock()
	active := c.st.active
	c.mu.RUnlock()
	if !active {
		return AdvanceResult{Outcome: OutcomeNoActive}
	}

	reading := c.slo.Read(ctx)
	entry, passed := c.observe(ctx, reading, models.SourceManual)
	if !passed {
		revert := c.halt(ctx, models.SourceManual, entry.Percent, reading.P95)
		return AdvanceResult{Outcome: OutcomeStopped, Percent: entry.Percent, P95: reading.P95, Revert: revert}
	}
	return c.step(ctx)
}

// observe samples into history under the state lock and reports whether
// the sample passed.
func (c *Controller) observe(ctx context.Context, reading telemetry.Reading, source string) (models.HistoryEntry, bool) {
	passed := reading.P95 <= c.cfg.SLOCeilingMs

	c.mu.Lock()
	entry := models.HistoryEntry{
		Timestamp: c.now().UTC(),
		Percent:   c.cfg.Stages[c.st.stageIndex],
		P95:       reading.P95,
		Passed:    passed,
		Source:    source,
	}
	c.st.history = append(c.st.history, entry)
	recID := c.st.recID
	c.mu.Unlock()

	c.auditor.RecordHistory(ctx, recID, entry)
	metrics.RecordSLOCheck(source, reading.P95, passed)
	logging.Ctx(ctx).Debug().Str("source", source).Str("sampler", reading.Source).
		Float64("p95_ms", reading.P95).Bool("passed", passed).Int("percent", entry.Percent).Msg("SLO check")
	return entry, passed
}

// step moves to the next stage or completes the rollout.
func (c *Controller) step(ctx context.Context) AdvanceResult {
	c.mu.Lock()
	c.st.breaches = 0
	recID := c.st.recID
	if c.st.stageIndex+1 < len(c.cfg.Stages) {
		c.st.stageIndex++
		percent := c.cfg.Stages[c.st.stageIndex]
		c.mu.Unlock()

		metrics.SetRolloutState(true, percent)
		metrics.RolloutTransitions.WithLabelValues("advanced").Inc()
		logging.Ctx(ctx).Info().Str("rec_id", recID).Int("percent", percent).Msg("Rollout advanced")
		c.alerts.Notify(ctx, fmt.Sprintf("Rollout %s advanced to %d%%", recID, percent))
		return AdvanceResult{Outcome: OutcomeAdvanced, Percent: percent}
	}
	c.st.active = false
	c.st.completed = true
	c.mu.Unlock()

	metrics.SetRolloutState(false, 100)
	metrics.RolloutTransitions.WithLabelValues("completed").Inc()
	c.auditor.Record(ctx, models.ActionComplete, recID, audit.ActorFromContext(ctx), "")
	logging.Ctx(ctx).Info().Str("rec_id", recID).Msg("Rollout completed")
	c.alerts.Notify(ctx, fmt.Sprintf("Rollout %s completed", recID))
	return AdvanceResult{Outcome: OutcomeCompleted, Percent: 100}
}

// halt moves an active rollout to Idle after a breach and runs the breach
// action. Caller holds the transition lock.
func (c *Controller) halt(ctx context.Context, source string, percent int, p95 float64) *RevertResult {
	c.mu.Lock()
	recID := c.st.recID
	c.st.active = false
	c.st.stageIndex = 0
	c.st.breaches = 0
	c.mu.Unlock()

	mode := "manual"
	actor := audit.ActorFromContext(ctx)
	if source == models.SourcePoller {
		mode = "automatic"
		actor = audit.ActorPoller
	}
	detail := fmt.Sprintf("%s halt at %d%%: p95 %.1fms > %.1fms", mode, percent, p95, c.cfg.SLOCeilingMs)

	metrics.SetRolloutState(false, 0)
	metrics.RolloutTransitions.WithLabelValues("halted").Inc()
	c.auditor.Record(ctx, models.ActionHalt, recID, actor, detail)
	logging.Ctx(ctx).Warn().Str("rec_id", recID).Str("mode", mode).Int("percent", percent).
		Float64("p95_ms", p95).Float64("ceiling_ms", c.cfg.SLOCeilingMs).Msg("SLO breach, rollout halted")
	c.alerts.Notify(ctx, fmt.Sprintf("[%s] Rollout %s halted at %d%%: p95 %.1fms exceeds %.1fms", mode, recID, percent, p95, c.cfg.SLOCeilingMs))

	if c.cfg.BreachAction == BreachStateOnly {
		logging.Ctx(ctx).Warn().Str("rec_id", recID).
			Msg("Breach action is state_only; kernel values from this rollout remain applied")
		return nil
	}
	restores, err := c.applier.Rollback(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("rec_id", recID).Msg("Privileged rollback after breach failed")
	}
	return &RevertResult{Restored: restores, Err: err}
}

// RollbackResult is the outcome of Rollback.
type RollbackResult struct {
	OK          bool             `json:"ok"`
	RolledBack  bool             `json:"rolled_back"`
	WasActive   bool             `json:"was_active"`
	Restored    []models.Restore `json:"restored"`
	BackupError string           `json:"backup_error,omitempty"`
}

// Rollback resets the rollout to Idle from any state and restores the
// stored backup. A missing backup is reported in the result. A permission
// failure is returned as an error after the logical reset.
func (c *Controller) Rollback(ctx context.Context) (*RollbackResult, error) {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	wasActive := c.st.active
	recID := c.st.recID
	c.st.active = false
	c.st.stageIndex = 0
	c.st.completed = false
	c.st.breaches = 0
	c.mu.Unlock()

	metrics.SetRolloutState(false, 0)
	if wasActive {
		metrics.RolloutTransitions.WithLabelValues("rolled_back").Inc()
		c.auditor.Record(ctx, models.ActionRollback, recID, audit.ActorFromContext(ctx), "manual rollback")
		logging.Ctx(ctx).Info().Str("rec_id", recID).Msg("Rollout rolled back")
		c.alerts.Notify(ctx, fmt.Sprintf("[manual] Rollout %s rolled back", recID))
	}

	result := &RollbackResult{OK: true, RolledBack: true, WasActive: wasActive, Restored: []models.Restore{}}
	restores, err := c.applier.Rollback(ctx)
	if restores != nil {
		result.Restored = restores
	}
	switch {
	case err == nil:
	case errors.Is(err, sysctl.ErrPermission):
		return result, err
	default:
		result.BackupError = err.Error()
		logging.Ctx(ctx).Warn().Err(err).Msg("Privileged rollback reported an error")
	}
	return result, nil
}

// TickResult is the outcome of one poller tick.
type TickResult struct {
	Outcome Outcome
	Reading telemetry.Reading
	Revert  *RevertResult
}

// Tick runs one SLO poll. With no active rollout it does nothing.
func (c *Controller) Tick(ctx context.Context) TickResult {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.RLock()
	active := c.st.active
	c.mu.RUnlock()
	if !active {
		return TickResult{Outcome: OutcomeNoActive}
	}

	reading := c.slo.Read(ctx)
	entry, passed := c.observe(ctx, reading, models.SourcePoller)
	if passed {
		c.mu.Lock()
		c.st.breaches = 0
		c.mu.Unlock()
		if c.cfg.AutoAdvance {
			r := c.step(ctx)
			return TickResult{Outcome: r.Outcome, Reading: reading}
		}
		return TickResult{Outcome: OutcomePassed, Reading: reading}
	}

	c.mu.Lock()
	c.st.breaches++
	breaches := c.st.breaches
	c.mu.Unlock()
	if breaches < c.cfg.BreachThreshold {
		logging.Ctx(ctx).Warn().Int("breaches", breaches).Int("threshold", c.cfg.BreachThreshold).
			Float64("p95_ms", reading.P95).Msg("SLO breach below halt threshold")
		return TickResult{Outcome: OutcomeBreach, Reading: reading}
	}
	revert := c.halt(ctx, models.SourcePoller, entry.Percent, reading.P95)
	return TickResult{Outcome: OutcomeStopped, Reading: reading, Revert: revert}
}

// Status returns a deep copy of the rollout state.
func (c *Controller) Status() models.RolloutSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	percent := 0
	switch {
	case c.st.active:
		percent = c.cfg.Stages[c.st.stageIndex]
	case c.st.completed:
		percent = 100
	}
	stageIndex := c.st.stageIndex
	if c.st.completed && !c.st.active {
		stageIndex = len(c.cfg.Stages) - 1
	}
	return models.RolloutSnapshot{
		Active:     c.st.active,
		RecID:      c.st.recID,
		Percent:    percent,
		StageIndex: stageIndex,
		Stages:     append([]int(nil), c.cfg.Stages...),
		Completed:  c.st.completed,
		Breaches:   c.st.breaches,
		History:    append([]models.HistoryEntry{}, c.st.history...),
		Vetoed:     append([]string{}, c.st.vetoed...),
	}
}

// Reject records an operator rejection of a recommendation.
func (c *Controller) Reject(ctx context.Context, recID, reason string) {
	c.auditor.Record(ctx, models.ActionReject, recID, audit.ActorFromContext(ctx), reason)
}
