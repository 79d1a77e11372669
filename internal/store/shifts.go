package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shiftbot/internal/model"
)

// GetActiveShift returns the user's in-progress shift, or nil if the user is
// not checked in.
func (s *Store) GetActiveShift(ctx context.Context, userID string) (*model.ActiveShift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, check_in_time, current_status, status_start_time, on_break, break_start_time
		FROM active_shifts WHERE user_id = ?`, userID)
	shift, err := s.scanActiveShift(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active shift: %w", err)
	}
	return shift, nil
}

// CreateActiveShift inserts a new shift row. Fails if one already exists for
// the user.
func (s *Store) CreateActiveShift(ctx context.Context, shift *model.ActiveShift) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_shifts (user_id, username, check_in_time, current_status, status_start_time, on_break)
		VALUES (?, ?, ?, ?, ?, 0)`,
		shift.UserID, shift.Username, s.formatTime(shift.CheckIn),
		string(shift.CurrentStatus), s.formatTime(shift.StatusStart))
	if err != nil {
		return fmt.Errorf("create active shift: %w", err)
	}
	return nil
}

// SetStatus records a status transition on the active shift.
func (s *Store) SetStatus(ctx context.Context, userID string, status model.Status, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE active_shifts SET current_status = ?, status_start_time = ? WHERE user_id = ?`,
		string(status), s.formatTime(at), userID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetBreak flags the active shift as on break from the given instant.
func (s *Store) SetBreak(ctx context.Context, userID string, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE active_shifts SET on_break = 1, break_start_time = ? WHERE user_id = ?`,
		s.formatTime(start), userID)
	if err != nil {
		return fmt.Errorf("set break: %w", err)
	}
	return nil
}

// ClearBreak clears the break flag on the active shift.
func (s *Store) ClearBreak(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE active_shifts SET on_break = 0, break_start_time = NULL WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear break: %w", err)
	}
	return nil
}

// ListActiveShifts returns all current shifts, ordered by check-in time.
func (s *Store) ListActiveShifts(ctx context.Context) ([]*model.ActiveShift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, check_in_time, current_status, status_start_time, on_break, break_start_time
		FROM active_shifts ORDER BY check_in_time`)
	if err != nil {
		return nil, fmt.Errorf("list active shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*model.ActiveShift
	for rows.Next() {
		shift, err := s.scanActiveShift(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan active shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

func (s *Store) scanActiveShift(scan func(...any) error) (*model.ActiveShift, error) {
	var shift model.ActiveShift
	var checkIn, statusStart string
	var onBreak int
	var breakStart sql.NullString
	if err := scan(&shift.UserID, &shift.Username, &checkIn, (*string)(&shift.CurrentStatus),
		&statusStart, &onBreak, &breakStart); err != nil {
		return nil, err
	}
	shift.CheckIn = s.parseTime(checkIn)
	shift.StatusStart = s.parseTime(statusStart)
	shift.OnBreak = onBreak == 1
	if breakStart.Valid {
		t := s.parseTime(breakStart.String)
		shift.BreakStart = &t
	}
	return &shift, nil
}
