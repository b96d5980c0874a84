package gamestate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeExtracted Outcome = "extracted"
	OutcomeDied      Outcome = "died"
	OutcomeFled      Outcome = "fled"
)

// RunRecord is the history row written when a run reaches a terminal event.
type RunRecord struct {
	ID         uuid.UUID
	Slot       string
	Outcome    Outcome
	Depth      int
	Pickups    int // successful AddUpgrade calls
	KindsHeld  int // distinct kinds held at the end
	BonusXP    int64
	DurationMs int64
	EndedAt    time.Time
}

// RunHistory persists run records.
type RunHistory interface {
	RecordRun(ctx context.Context, r RunRecord) error
	// RecentRuns returns up to limit records for slot, newest first.
	RecentRuns(ctx context.Context, slot string, limit int) ([]RunRecord, error)
}
