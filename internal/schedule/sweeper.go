package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"shiftbot/internal/clock"
	"shiftbot/internal/model"
	"shiftbot/internal/notify"
	"shiftbot/internal/store"
)

const (
	kindMissingCheckIn  = "missing-checkin"
	kindMissingCheckOut = "missing-checkout"
)

// Sweeper watches employee schedules and raises overdue-attendance alerts:
// a missing check-in once an employee is past their expected start on a
// workday, and a missing check-out once a shift runs past its expected end.
// The report log guarantees at most one alert per user, kind and day, so the
// sweep itself can run as often as it likes.
type Sweeper struct {
	store    *store.Store
	notifier notify.Notifier
	clock    clock.Clock
	interval time.Duration
	grace    time.Duration
	logger   zerolog.Logger
}

func NewSweeper(st *store.Store, notifier notify.Notifier, clk clock.Clock,
	interval, grace time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    st,
		notifier: notifier,
		clock:    clk,
		interval: interval,
		grace:    grace,
		logger:   logger,
	}
}

// Start runs periodic sweeps until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Dur("grace", s.grace).Msg("attendance sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("attendance sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep evaluates every schedule once against the current time.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock.Now()
	date := now.Format(time.DateOnly)

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list schedules")
		return
	}

	for _, sched := range schedules {
		if !sched.WorksOn(now.Weekday()) {
			continue
		}
		s.checkMissingCheckIn(ctx, sched, now, date)
		s.checkMissingCheckOut(ctx, sched, now, date)
	}
}

func (s *Sweeper) checkMissingCheckIn(ctx context.Context, sched *model.Schedule, now time.Time, date string) {
	expected, ok := model.TimeOn(now, sched.CheckInTime)
	if !ok || now.Before(expected.Add(s.grace)) {
		return
	}

	shift, err := s.store.GetActiveShift(ctx, sched.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sched.UserID).Msg("sweep active shift")
		return
	}
	if shift != nil {
		return
	}
	done, err := s.store.CountShiftsOn(ctx, sched.UserID, date)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sched.UserID).Msg("sweep shift count")
		return
	}
	if done > 0 {
		return
	}

	fresh, err := s.store.MarkReported(ctx, date, kindMissingCheckIn, sched.UserID, now)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sched.UserID).Msg("mark reported")
		return
	}
	if !fresh {
		return
	}

	req := notify.NewRequest(notify.CategoryMissingCheckIn, notify.SeverityWarning, sched.UserID)
	req.ManagerCopy = true
	s.notifier.Send(ctx, req.
		With("username", sched.Username).
		With("expected", sched.CheckInTime))
	s.logger.Info().Str("user_id", sched.UserID).Msg("missing check-in alert")
}

func (s *Sweeper) checkMissingCheckOut(ctx context.Context, sched *model.Schedule, now time.Time, date string) {
	expected, ok := model.TimeOn(now, sched.CheckOutTime)
	if !ok || now.Before(expected.Add(s.grace)) {
		return
	}

	shift, err := s.store.GetActiveShift(ctx, sched.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sched.UserID).Msg("sweep active shift")
		return
	}
	if shift == nil {
		return
	}

	fresh, err := s.store.MarkReported(ctx, date, kindMissingCheckOut, sched.UserID, now)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sched.UserID).Msg("mark reported")
		return
	}
	if !fresh {
		return
	}

	req := notify.NewRequest(notify.CategoryMissingCheckOut, notify.SeverityWarning, sched.UserID)
	req.ManagerCopy = true
	s.notifier.Send(ctx, req.
		With("username", sched.Username).
		With("expected", sched.CheckOutTime))
	s.logger.Info().Str("user_id", sched.UserID).Msg("missing check-out alert")
}
