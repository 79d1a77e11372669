package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"shiftbot/internal/clock"
	"shiftbot/internal/model"
	"shiftbot/internal/store"
)

func newPresenceFixture(t *testing.T) (*PresenceService, *ShiftService, *clock.Fake, *store.Store) {
	t.Helper()
	st, err := store.NewMemory(time.UTC)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clk := clock.NewFake(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))
	locks := NewUserLocks()
	presence := NewPresenceService(st, clk, locks, zerolog.Nop())
	shifts := NewShiftService(st, clk, locks, 40*time.Minute, zerolog.Nop())
	return presence, shifts, clk, st
}

func countIntervals(t *testing.T, st *store.Store, userID string) int {
	t.Helper()
	ivs, err := st.ListStatusIntervals(context.Background(), userID, "")
	if err != nil {
		t.Fatal(err)
	}
	return len(ivs)
}

func TestApplyIgnoredWithoutShift(t *testing.T) {
	presence, _, _, _ := newPresenceFixture(t)

	tr, err := presence.Apply(context.Background(), "u1", "idle")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Tracked {
		t.Fatalf("expected untracked, got %+v", tr)
	}
}

func TestApplyIgnoredOnBreak(t *testing.T) {
	presence, shifts, _, _ := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := shifts.StartBreak(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	tr, err := presence.Apply(ctx, "u1", "offline")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Tracked {
		t.Fatalf("expected untracked during break, got %+v", tr)
	}

	// Status stays frozen at whatever it was when the break began.
	shift, _ := shifts.ActiveShift(ctx, "u1")
	if shift.CurrentStatus != model.StatusOnline {
		t.Fatalf("status changed during break: %s", shift.CurrentStatus)
	}
}

func TestApplyDndIsStillOnline(t *testing.T) {
	presence, shifts, _, _ := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	tr, err := presence.Apply(ctx, "u1", "dnd")
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Tracked || tr.Changed {
		t.Fatalf("expected online->online no-op, got %+v", tr)
	}
}

func TestApplyUnknownStatusIgnored(t *testing.T) {
	presence, shifts, _, _ := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	tr, err := presence.Apply(ctx, "u1", "invisible")
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Tracked || tr.Changed {
		t.Fatalf("expected no-op for unknown status, got %+v", tr)
	}
	shift, _ := shifts.ActiveShift(ctx, "u1")
	if shift.CurrentStatus != model.StatusOnline {
		t.Fatalf("unknown status mutated state: %s", shift.CurrentStatus)
	}
}

func TestApplyDiscardsFlicker(t *testing.T) {
	presence, shifts, clk, st := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := presence.Apply(ctx, "u1", "idle"); err != nil {
		t.Fatal(err)
	}
	clk.Advance(45 * time.Second)
	if _, err := presence.Apply(ctx, "u1", "online"); err != nil {
		t.Fatal(err)
	}

	if n := countIntervals(t, st, "u1"); n != 0 {
		t.Fatalf("sub-minute flicker persisted %d intervals", n)
	}
}

func TestApplyPersistsIdleInterval(t *testing.T) {
	presence, shifts, clk, st := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	idleStart := clk.Now()
	if _, err := presence.Apply(ctx, "u1", "idle"); err != nil {
		t.Fatal(err)
	}
	clk.Advance(8 * time.Minute)
	tr, err := presence.Apply(ctx, "u1", "online")
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Changed || tr.Old != model.StatusIdle || tr.New != model.StatusOnline {
		t.Fatalf("unexpected transition: %+v", tr)
	}

	ivs, err := st.ListStatusIntervals(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ivs) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(ivs))
	}
	iv := ivs[0]
	if iv.Status != model.StatusIdle || iv.DurationMinutes != 8 {
		t.Fatalf("unexpected interval: %+v", iv)
	}
	if !iv.Start.Equal(idleStart) {
		t.Fatalf("interval start %v, want %v", iv.Start, idleStart)
	}
}

func TestApplyIntervalsDoNotOverlap(t *testing.T) {
	presence, shifts, clk, st := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := shifts.CheckIn(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	// idle -> offline -> online produces two back-to-back intervals.
	if _, err := presence.Apply(ctx, "u1", "idle"); err != nil {
		t.Fatal(err)
	}
	clk.Advance(5 * time.Minute)
	if _, err := presence.Apply(ctx, "u1", "offline"); err != nil {
		t.Fatal(err)
	}
	clk.Advance(3 * time.Minute)
	if _, err := presence.Apply(ctx, "u1", "online"); err != nil {
		t.Fatal(err)
	}

	ivs, err := st.ListStatusIntervals(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ivs) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(ivs))
	}
	if !ivs[0].End.Equal(ivs[1].Start) {
		t.Fatalf("intervals overlap or gap: %v vs %v", ivs[0].End, ivs[1].Start)
	}
	if ivs[0].Status != model.StatusIdle || ivs[1].Status != model.StatusOffline {
		t.Fatalf("unexpected interval statuses: %s, %s", ivs[0].Status, ivs[1].Status)
	}
}
