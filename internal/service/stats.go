package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"shiftbot/internal/clock"
	"shiftbot/internal/model"
	"shiftbot/internal/store"
)

// StatsService answers statistics queries from the shift history and the
// live active-shift table. All reads are derived; nothing here mutates
// state. Users with no history get zero-valued results, not errors.
type StatsService struct {
	store    *store.Store
	clock    clock.Clock
	breakLen time.Duration
}

func NewStatsService(st *store.Store, clk clock.Clock, breakLen time.Duration) *StatsService {
	return &StatsService{store: st, clock: clk, breakLen: breakLen}
}

// UserStats sums the user's completed shifts over the last N days.
func (s *StatsService) UserStats(ctx context.Context, userID string, days int) (*model.PeriodStats, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -days)
	p, err := s.store.UserStats(ctx, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return p, nil
}

// DailyStats breaks the user's last N days down by calendar date of
// check-in, most recent first.
func (s *StatsService) DailyStats(ctx context.Context, userID string, days int) ([]*model.DayStats, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -days)
	out, err := s.store.DailyStats(ctx, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	return out, nil
}

// RangeReport groups completed shifts by employee over an inclusive date
// range, ordered for leaderboard display: productivity descending, then
// username for a stable tie-break.
func (s *StatsService) RangeReport(ctx context.Context, startDate, endDate string) ([]*model.UserPeriodStats, error) {
	out, err := s.store.RangeStats(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("range report: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Productivity(), out[j].Productivity()
		if pi != pj {
			return pi > pj
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// ShiftSnapshot is a live view of one active shift.
type ShiftSnapshot struct {
	Shift          *model.ActiveShift
	Elapsed        time.Duration
	BreakRemaining time.Duration
}

// ActiveShiftsSnapshot lists everyone currently checked in with live-computed
// elapsed time and, for users on break, the remaining break time floored at
// zero.
func (s *StatsService) ActiveShiftsSnapshot(ctx context.Context) ([]ShiftSnapshot, error) {
	shifts, err := s.store.ListActiveShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("active shifts snapshot: %w", err)
	}

	now := s.clock.Now()
	out := make([]ShiftSnapshot, 0, len(shifts))
	for _, shift := range shifts {
		snap := ShiftSnapshot{Shift: shift, Elapsed: now.Sub(shift.CheckIn)}
		if shift.OnBreak && shift.BreakStart != nil {
			remaining := s.breakLen - now.Sub(*shift.BreakStart)
			if remaining < 0 {
				remaining = 0
			}
			snap.BreakRemaining = remaining
		}
		out = append(out, snap)
	}
	return out, nil
}
