package store

import (
	"context"
	"testing"
	"time"

	"shiftbot/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory(time.UTC)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCheckIn(t *testing.T, s *Store, userID, username string, at time.Time) {
	t.Helper()
	err := s.CreateActiveShift(context.Background(), &model.ActiveShift{
		UserID:        userID,
		Username:      username,
		CheckIn:       at,
		CurrentStatus: model.StatusOnline,
		StatusStart:   at,
	})
	if err != nil {
		t.Fatalf("create active shift: %v", err)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestActiveShiftRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	if shift, err := s.GetActiveShift(ctx, "u1"); err != nil || shift != nil {
		t.Fatalf("expected no shift, got %v, %v", shift, err)
	}

	mustCheckIn(t, s, "u1", "alice", checkIn)

	shift, err := s.GetActiveShift(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if shift == nil {
		t.Fatal("expected shift")
	}
	if shift.Username != "alice" || !shift.CheckIn.Equal(checkIn) {
		t.Fatalf("unexpected shift: %+v", shift)
	}
	if shift.CurrentStatus != model.StatusOnline || shift.OnBreak || shift.BreakStart != nil {
		t.Fatalf("unexpected initial state: %+v", shift)
	}

	// Duplicate check-in must fail on the primary key.
	if err := s.CreateActiveShift(ctx, shift); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
}

func TestSetStatusAndBreakFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	at := checkIn.Add(10 * time.Minute)
	if err := s.SetStatus(ctx, "u1", model.StatusIdle, at); err != nil {
		t.Fatal(err)
	}
	shift, _ := s.GetActiveShift(ctx, "u1")
	if shift.CurrentStatus != model.StatusIdle || !shift.StatusStart.Equal(at) {
		t.Fatalf("unexpected status state: %+v", shift)
	}

	if err := s.SetBreak(ctx, "u1", at.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	shift, _ = s.GetActiveShift(ctx, "u1")
	if !shift.OnBreak || shift.BreakStart == nil {
		t.Fatalf("expected on break: %+v", shift)
	}

	if err := s.ClearBreak(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	shift, _ = s.GetActiveShift(ctx, "u1")
	if shift.OnBreak || shift.BreakStart != nil {
		t.Fatalf("expected break cleared: %+v", shift)
	}
}

func TestCompleteShiftWithoutShift(t *testing.T) {
	s := newTestStore(t)
	summary, err := s.CompleteShift(context.Background(), "nobody", time.Now(), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary, got %+v", summary)
	}
}

func TestCompleteShiftAllActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(2*time.Hour), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalMinutes != 120 || summary.ActiveMinutes != 120 {
		t.Fatalf("expected 120/120, got %+v", summary)
	}
	if summary.IdleMinutes != 0 || summary.OfflineMinutes != 0 || summary.BreakMinutes != 0 {
		t.Fatalf("expected zero idle/offline/break, got %+v", summary)
	}

	// The active shift is gone and history holds exactly one row.
	if shift, _ := s.GetActiveShift(ctx, "u1"); shift != nil {
		t.Fatal("active shift not deleted")
	}
	stats, err := s.UserStats(ctx, "u1", checkIn.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Shifts != 1 || stats.TotalMinutes != 120 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCompleteShiftCategoryBuckets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	idleStart := checkIn.Add(30 * time.Minute)
	if err := s.InsertStatusInterval(ctx, &model.StatusInterval{
		UserID: "u1", Status: model.StatusIdle,
		Start: idleStart, End: idleStart.Add(8 * time.Minute), DurationMinutes: 8,
	}); err != nil {
		t.Fatal(err)
	}
	offStart := checkIn.Add(50 * time.Minute)
	if err := s.InsertStatusInterval(ctx, &model.StatusInterval{
		UserID: "u1", Status: model.StatusOffline,
		Start: offStart, End: offStart.Add(5 * time.Minute), DurationMinutes: 5,
	}); err != nil {
		t.Fatal(err)
	}
	brStart := checkIn.Add(70 * time.Minute)
	if err := s.InsertBreakInterval(ctx, &model.BreakInterval{
		UserID: "u1", Username: "alice",
		Start: brStart, End: brStart.Add(15 * time.Minute), DurationMinutes: 15,
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(2*time.Hour), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.IdleMinutes != 8 || summary.OfflineMinutes != 5 || summary.BreakMinutes != 15 {
		t.Fatalf("unexpected buckets: %+v", summary)
	}
	if summary.ActiveMinutes != 120-8-5-15 {
		t.Fatalf("active mismatch: %+v", summary)
	}
	got := summary.ActiveMinutes + summary.IdleMinutes + summary.OfflineMinutes + summary.BreakMinutes
	if got != summary.TotalMinutes {
		t.Fatalf("categories do not partition total: %d != %d", got, summary.TotalMinutes)
	}
}

func TestCompleteShiftIgnoresEarlierShiftIntervals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	// Interval from a previous shift must not leak into this one.
	old := checkIn.Add(-3 * time.Hour)
	if err := s.InsertStatusInterval(ctx, &model.StatusInterval{
		UserID: "u1", Status: model.StatusIdle,
		Start: old, End: old.Add(20 * time.Minute), DurationMinutes: 20,
	}); err != nil {
		t.Fatal(err)
	}

	mustCheckIn(t, s, "u1", "alice", checkIn)
	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(time.Hour), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.IdleMinutes != 0 {
		t.Fatalf("previous-shift interval leaked: %+v", summary)
	}
}

func TestCompleteShiftCapsInProgressBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	// Break started an hour ago and never ended.
	if err := s.SetBreak(ctx, "u1", checkIn.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(90*time.Minute), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.BreakMinutes != 40 {
		t.Fatalf("expected in-progress break capped at 40, got %d", summary.BreakMinutes)
	}
}

func TestCompleteShiftOnBreakFromIdle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	// Idle since T+10, break since T+30, checkout at T+50 while still on
	// break. The frozen idle segment ends at the break boundary, not at
	// checkout, so the break window is not also counted as idle.
	if err := s.SetStatus(ctx, "u1", model.StatusIdle, checkIn.Add(10*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBreak(ctx, "u1", checkIn.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(50*time.Minute), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.IdleMinutes != 20 || summary.BreakMinutes != 20 {
		t.Fatalf("expected idle=20 break=20, got %+v", summary)
	}
	if summary.ActiveMinutes != 10 || summary.TotalMinutes != 50 {
		t.Fatalf("expected active=10 of 50, got %+v", summary)
	}
}

func TestCompleteShiftFoldsOpenTrackedStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)

	// Went idle 10 minutes before checkout and never came back.
	if err := s.SetStatus(ctx, "u1", model.StatusIdle, checkIn.Add(50*time.Minute)); err != nil {
		t.Fatal(err)
	}

	summary, err := s.CompleteShift(ctx, "u1", checkIn.Add(time.Hour), 40*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if summary.IdleMinutes != 10 {
		t.Fatalf("expected open idle folded in as 10, got %d", summary.IdleMinutes)
	}

	// Read-time reconciliation only: no interval row was persisted.
	intervals, err := s.ListStatusIntervals(ctx, "u1", s.formatTime(checkIn))
	if err != nil {
		t.Fatal(err)
	}
	if len(intervals) != 0 {
		t.Fatalf("expected no persisted interval, got %d", len(intervals))
	}
}

func TestDailyStatsGroupedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		checkIn := time.Date(2025, 3, day, 9, 0, 0, 0, time.UTC)
		mustCheckIn(t, s, "u1", "alice", checkIn)
		if _, err := s.CompleteShift(ctx, "u1", checkIn.Add(time.Hour), 40*time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	daily, err := s.DailyStats(ctx, "u1", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 3 {
		t.Fatalf("expected 3 days, got %d", len(daily))
	}
	if daily[0].Date != "2025-03-03" || daily[2].Date != "2025-03-01" {
		t.Fatalf("expected most-recent-first, got %s ... %s", daily[0].Date, daily[2].Date)
	}
	if daily[0].Shifts != 1 || daily[0].TotalMinutes != 60 {
		t.Fatalf("unexpected day stats: %+v", daily[0])
	}
}

func TestRangeStatsGroupsByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	mustCheckIn(t, s, "u1", "alice", checkIn)
	if _, err := s.CompleteShift(ctx, "u1", checkIn.Add(time.Hour), 40*time.Minute); err != nil {
		t.Fatal(err)
	}
	mustCheckIn(t, s, "u2", "bob", checkIn)
	if _, err := s.CompleteShift(ctx, "u2", checkIn.Add(2*time.Hour), 40*time.Minute); err != nil {
		t.Fatal(err)
	}

	rows, err := s.RangeStats(ctx, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 users, got %d", len(rows))
	}

	// Outside the range: nothing.
	rows, err = s.RangeStats(ctx, "2025-04-01", "2025-04-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty range, got %d rows", len(rows))
	}
}

func TestCountShiftsOn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mustCheckIn(t, s, "u1", "alice", checkIn)
	if _, err := s.CompleteShift(ctx, "u1", checkIn.Add(time.Hour), 40*time.Minute); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountShiftsOn(ctx, "u1", "2025-03-03")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	n, _ = s.CountShiftsOn(ctx, "u1", "2025-03-04")
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sched := &model.Schedule{
		UserID: "u1", Username: "alice",
		CheckInTime: "09:00", CheckOutTime: "17:00",
		WorkDays: []string{"monday", "tuesday"},
	}
	if err := s.UpsertSchedule(ctx, sched); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSchedule(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.CheckInTime != "09:00" || len(got.WorkDays) != 2 {
		t.Fatalf("unexpected schedule: %+v", got)
	}

	// Upsert replaces.
	sched.CheckOutTime = "18:00"
	if err := s.UpsertSchedule(ctx, sched); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetSchedule(ctx, "u1")
	if got.CheckOutTime != "18:00" {
		t.Fatalf("upsert did not replace: %+v", got)
	}

	all, err := s.ListSchedules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(all))
	}

	if missing, err := s.GetSchedule(ctx, "u2"); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown user, got %v, %v", missing, err)
	}
}

func TestMarkReportedOncePerDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	fresh, err := s.MarkReported(ctx, "2025-03-03", "missing-checkin", "u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Fatal("first mark should be fresh")
	}
	fresh, err = s.MarkReported(ctx, "2025-03-03", "missing-checkin", "u1", now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Fatal("second mark should be suppressed")
	}

	// A different kind or day is independent.
	if fresh, _ := s.MarkReported(ctx, "2025-03-03", "missing-checkout", "u1", now); !fresh {
		t.Fatal("different kind should be fresh")
	}
	if fresh, _ := s.MarkReported(ctx, "2025-03-04", "missing-checkin", "u1", now); !fresh {
		t.Fatal("different day should be fresh")
	}
}

func TestParseTimeLegacyFallback(t *testing.T) {
	loc := time.FixedZone("PKT", 5*3600)
	s, err := NewMemory(loc)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Canonical form round-trips.
	ts := time.Date(2025, 3, 3, 9, 30, 0, 0, loc)
	if got := s.parseTime(s.formatTime(ts)); !got.Equal(ts) {
		t.Fatalf("rfc3339 round trip: got %v want %v", got, ts)
	}

	// Legacy zone-less rows are read in the tracker zone.
	got := s.parseTime("2025-03-03 09:30:00")
	if !got.Equal(ts) {
		t.Fatalf("legacy parse: got %v want %v", got, ts)
	}

	// Garbage resolves to the zero time instead of an error.
	if got := s.parseTime("not-a-time"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}
