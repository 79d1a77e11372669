package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shiftbot/internal/clock"
	"shiftbot/internal/model"
	"shiftbot/internal/store"
)

// Status changes shorter than this are treated as transient flicker and not
// persisted as intervals.
const minIntervalLength = time.Minute

// Transition reports what a presence event did to the tracked status.
type Transition struct {
	// Tracked is false when the event was ignored: the user has no active
	// shift, or the shift is on break.
	Tracked bool
	Old     model.Status
	New     model.Status
	Changed bool
}

// PresenceService consumes presence-change events and maintains the tracked
// status of each active shift. It is the sole writer of status intervals.
// Warnings and timers are the caller's concern; Apply only mutates state and
// reports the transition.
type PresenceService struct {
	store  *store.Store
	clock  clock.Clock
	locks  *UserLocks
	logger zerolog.Logger
}

func NewPresenceService(st *store.Store, clk clock.Clock, locks *UserLocks, logger zerolog.Logger) *PresenceService {
	return &PresenceService{store: st, clock: clk, locks: locks, logger: logger}
}

// Apply records a platform presence change for the user. The prior idle or
// offline period is closed lazily here, on the transition out of it, and
// only when it outlasted the flicker debounce.
func (p *PresenceService) Apply(ctx context.Context, userID, platformStatus string) (Transition, error) {
	defer p.locks.Lock(userID)()

	shift, err := p.store.GetActiveShift(ctx, userID)
	if err != nil {
		return Transition{}, fmt.Errorf("apply presence: %w", err)
	}
	if shift == nil || shift.OnBreak {
		return Transition{}, nil
	}

	newStatus, ok := model.TrackedStatus(platformStatus)
	if !ok {
		return Transition{Tracked: true, Old: shift.CurrentStatus, New: shift.CurrentStatus}, nil
	}
	if newStatus == shift.CurrentStatus {
		return Transition{Tracked: true, Old: shift.CurrentStatus, New: newStatus}, nil
	}

	now := p.clock.Now()
	old := shift.CurrentStatus
	if old == model.StatusIdle || old == model.StatusOffline {
		if elapsed := now.Sub(shift.StatusStart); elapsed > minIntervalLength {
			iv := &model.StatusInterval{
				UserID:          userID,
				Status:          old,
				Start:           shift.StatusStart,
				End:             now,
				DurationMinutes: int(elapsed / time.Minute),
			}
			if err := p.store.InsertStatusInterval(ctx, iv); err != nil {
				return Transition{}, fmt.Errorf("apply presence: %w", err)
			}
		}
	}

	if err := p.store.SetStatus(ctx, userID, newStatus, now); err != nil {
		return Transition{}, fmt.Errorf("apply presence: %w", err)
	}

	p.logger.Debug().
		Str("user_id", userID).
		Str("old", string(old)).
		Str("new", string(newStatus)).
		Msg("status transition")
	return Transition{Tracked: true, Old: old, New: newStatus, Changed: true}, nil
}
