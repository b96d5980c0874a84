// Package run turns terminal run events into their permanent consequences.
package run

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/gamestate"
)

const recordTimeout = 5 * time.Second

// Upgrades is the part of the run-state manager the resolver drives.
// Implemented by upgrade.Manager.
type Upgrades interface {
	OnExtractionFailed() int
	OnExtractionSuccess() int64
	TotalCollected() int
	ActiveCount() int
}

// Resolver listens for PlayerDied, ExtractionSucceeded and RunFled and
// settles the run: death loses everything, extraction pays XP, fleeing
// changes nothing. Every outcome is written to the run history.
type Resolver struct {
	mu      sync.Mutex
	bus     *event.Bus
	ups     Upgrades
	history gamestate.RunHistory
	slot    string
	now     func() time.Time

	runID uuid.UUID
	last  *gamestate.RunRecord
}

// NewResolver creates a Resolver. history may be nil.
func NewResolver(bus *event.Bus, ups Upgrades, history gamestate.RunHistory, slot string) *Resolver {
	return &Resolver{
		bus:     bus,
		ups:     ups,
		history: history,
		slot:    slot,
		now:     time.Now,
		runID:   uuid.New(),
	}
}

// Listen subscribes to the terminal run events. ctx bounds history writes.
// The returned func unsubscribes.
func (r *Resolver) Listen(ctx context.Context) func() {
	stops := []func(){
		event.On(r.bus, func(e event.PlayerDied) { r.OnPlayerDied(ctx, e) }),
		event.On(r.bus, func(e event.ExtractionSucceeded) { r.OnExtractionSucceeded(ctx, e) }),
		event.On(r.bus, func(e event.RunFled) { r.OnFled(ctx, e) }),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// RunID returns the id of the run in progress.
func (r *Resolver) RunID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// LastRecord returns the most recent settled run.
func (r *Resolver) LastRecord() (gamestate.RunRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return gamestate.RunRecord{}, false
	}
	return *r.last, true
}

// OnPlayerDied clears every upgrade with no reward.
func (r *Resolver) OnPlayerDied(ctx context.Context, e event.PlayerDied) {
	rec := r.begin(gamestate.OutcomeDied, e.Depth, e.RunTimeMs)
	r.ups.OnExtractionFailed()
	r.finish(ctx, rec)
}

// OnExtractionSucceeded converts the pickups of this run to XP.
func (r *Resolver) OnExtractionSucceeded(ctx context.Context, e event.ExtractionSucceeded) {
	rec := r.begin(gamestate.OutcomeExtracted, e.Depth, e.RunTimeMs)
	rec.BonusXP = r.ups.OnExtractionSuccess()
	r.finish(ctx, rec)
}

// OnFled records the abort. Upgrades and the pickup counter are kept.
func (r *Resolver) OnFled(ctx context.Context, e event.RunFled) {
	rec := r.begin(gamestate.OutcomeFled, e.Depth, e.RunTimeMs)
	r.finish(ctx, rec)
}

func (r *Resolver) begin(outcome gamestate.Outcome, depth int, runTimeMs int64) gamestate.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gamestate.RunRecord{
		ID:         r.runID,
		Slot:       r.slot,
		Outcome:    outcome,
		Depth:      depth,
		Pickups:    r.ups.TotalCollected(),
		KindsHeld:  r.ups.ActiveCount(),
		DurationMs: runTimeMs,
		EndedAt:    r.now().UTC(),
	}
}

func (r *Resolver) finish(ctx context.Context, rec gamestate.RunRecord) {
	r.mu.Lock()
	r.last = &rec
	r.runID = uuid.New()
	history := r.history
	r.mu.Unlock()

	slog.Info("run settled",
		"runID", rec.ID,
		"outcome", rec.Outcome,
		"depth", rec.Depth,
		"pickups", rec.Pickups,
		"kinds", rec.KindsHeld,
		"bonusXP", rec.BonusXP,
		"durationMs", rec.DurationMs)

	if history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := history.RecordRun(ctx, rec); err != nil {
		slog.Error("recording run", "runID", rec.ID, "error", err)
	}
}
