package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiftbot/internal/model"
	"shiftbot/internal/store"
)

var validDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// ScheduleService maintains the expected working pattern per employee. The
// schedules are reference data for the missing check-in/check-out sweeps;
// nothing in the accounting core reads them.
type ScheduleService struct {
	store *store.Store
}

func NewScheduleService(st *store.Store) *ScheduleService {
	return &ScheduleService{store: st}
}

// Set validates and stores an employee's schedule.
func (s *ScheduleService) Set(ctx context.Context, userID, username, checkIn, checkOut string, days []string) (*model.Schedule, error) {
	if _, err := time.Parse("15:04", checkIn); err != nil {
		return nil, fmt.Errorf("invalid check-in time %q, want HH:MM", checkIn)
	}
	if _, err := time.Parse("15:04", checkOut); err != nil {
		return nil, fmt.Errorf("invalid check-out time %q, want HH:MM", checkOut)
	}
	normalized := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !validDays[d] {
			return nil, fmt.Errorf("invalid work day %q", d)
		}
		normalized = append(normalized, d)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("at least one work day is required")
	}

	sched := &model.Schedule{
		UserID:       userID,
		Username:     username,
		CheckInTime:  checkIn,
		CheckOutTime: checkOut,
		WorkDays:     normalized,
	}
	if err := s.store.UpsertSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("set schedule: %w", err)
	}
	return sched, nil
}

// Get returns the user's schedule, or nil when none is set.
func (s *ScheduleService) Get(ctx context.Context, userID string) (*model.Schedule, error) {
	return s.store.GetSchedule(ctx, userID)
}
