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

// ShiftService owns the check-in/check-out/break lifecycle. It is the sole
// writer of the active shift row and of the shift history.
type ShiftService struct {
	store    *store.Store
	clock    clock.Clock
	locks    *UserLocks
	breakLen time.Duration
	logger   zerolog.Logger
}

func NewShiftService(st *store.Store, clk clock.Clock, locks *UserLocks, breakLen time.Duration, logger zerolog.Logger) *ShiftService {
	return &ShiftService{store: st, clock: clk, locks: locks, breakLen: breakLen, logger: logger}
}

// BreakLength returns the configured break duration.
func (s *ShiftService) BreakLength() time.Duration {
	return s.breakLen
}

// CheckIn starts a shift for the user. A second check-in while a shift is
// active fails with ErrAlreadyCheckedIn and mutates nothing.
func (s *ShiftService) CheckIn(ctx context.Context, userID, username string) (*model.ActiveShift, error) {
	defer s.locks.Lock(userID)()

	existing, err := s.store.GetActiveShift(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedIn
	}

	now := s.clock.Now()
	shift := &model.ActiveShift{
		UserID:        userID,
		Username:      username,
		CheckIn:       now,
		CurrentStatus: model.StatusOnline,
		StatusStart:   now,
	}
	if err := s.store.CreateActiveShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("username", username).Msg("checked in")
	return shift, nil
}

// CheckOut ends the user's shift and returns the full category breakdown.
// The reconstruction of active/idle/offline/break minutes happens inside a
// single store transaction.
func (s *ShiftService) CheckOut(ctx context.Context, userID string) (*model.ShiftSummary, error) {
	defer s.locks.Lock(userID)()

	summary, err := s.store.CompleteShift(ctx, userID, s.clock.Now(), s.breakLen)
	if err != nil {
		return nil, fmt.Errorf("check out: %w", err)
	}
	if summary == nil {
		return nil, ErrNotCheckedIn
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("total_minutes", summary.TotalMinutes).
		Int("active_minutes", summary.ActiveMinutes).
		Int("idle_minutes", summary.IdleMinutes).
		Int("offline_minutes", summary.OfflineMinutes).
		Int("break_minutes", summary.BreakMinutes).
		Msg("checked out")
	return summary, nil
}

// StartBreak puts the user's shift on break and returns when the break is
// scheduled to end, so the caller can arm the auto-end timer.
func (s *ShiftService) StartBreak(ctx context.Context, userID string) (time.Time, error) {
	defer s.locks.Lock(userID)()

	shift, err := s.store.GetActiveShift(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("start break: %w", err)
	}
	if shift == nil {
		return time.Time{}, ErrNotCheckedIn
	}
	if shift.OnBreak {
		return time.Time{}, ErrAlreadyOnBreak
	}

	// A break suspends status tracking, so an open idle/offline episode
	// ends here. Close it now (debounced) and restart the status clock at
	// the break boundary; otherwise the break window would be counted in
	// both the break and the status bucket.
	now := s.clock.Now()
	if shift.CurrentStatus == model.StatusIdle || shift.CurrentStatus == model.StatusOffline {
		if elapsed := now.Sub(shift.StatusStart); elapsed > minIntervalLength {
			iv := &model.StatusInterval{
				UserID:          userID,
				Status:          shift.CurrentStatus,
				Start:           shift.StatusStart,
				End:             now,
				DurationMinutes: int(elapsed / time.Minute),
			}
			if err := s.store.InsertStatusInterval(ctx, iv); err != nil {
				return time.Time{}, fmt.Errorf("start break: %w", err)
			}
		}
		if err := s.store.SetStatus(ctx, userID, shift.CurrentStatus, now); err != nil {
			return time.Time{}, fmt.Errorf("start break: %w", err)
		}
	}
	if err := s.store.SetBreak(ctx, userID, now); err != nil {
		return time.Time{}, fmt.Errorf("start break: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Time("ends_at", now.Add(s.breakLen)).Msg("break started")
	return now.Add(s.breakLen), nil
}

// EndBreak closes the user's break and returns its recorded duration in
// minutes, capped at the configured break length. Safe to call from both the
// explicit command and the auto-end timer: whichever runs second gets
// ErrNotOnBreak and nothing else happens.
func (s *ShiftService) EndBreak(ctx context.Context, userID string) (int, error) {
	defer s.locks.Lock(userID)()

	shift, err := s.store.GetActiveShift(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("end break: %w", err)
	}
	if shift == nil {
		return 0, ErrNotCheckedIn
	}
	if !shift.OnBreak || shift.BreakStart == nil {
		return 0, ErrNotOnBreak
	}

	now := s.clock.Now()
	minutes := int(now.Sub(*shift.BreakStart) / time.Minute)
	if capMin := int(s.breakLen / time.Minute); minutes > capMin {
		minutes = capMin
	}

	interval := &model.BreakInterval{
		UserID:          userID,
		Username:        shift.Username,
		Start:           *shift.BreakStart,
		End:             now,
		DurationMinutes: minutes,
	}
	if err := s.store.InsertBreakInterval(ctx, interval); err != nil {
		return 0, fmt.Errorf("end break: %w", err)
	}
	if err := s.store.ClearBreak(ctx, userID); err != nil {
		return 0, fmt.Errorf("end break: %w", err)
	}
	// The frozen status resumes ticking from the break boundary, not from
	// before the break.
	if err := s.store.SetStatus(ctx, userID, shift.CurrentStatus, now); err != nil {
		return 0, fmt.Errorf("end break: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Int("minutes", minutes).Msg("break ended")
	return minutes, nil
}

// ActiveShift returns the user's in-progress shift, or nil when not checked
// in.
func (s *ShiftService) ActiveShift(ctx context.Context, userID string) (*model.ActiveShift, error) {
	return s.store.GetActiveShift(ctx, userID)
}
