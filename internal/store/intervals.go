package store

import (
	"context"
	"fmt"

	"shiftbot/internal/model"
)

// InsertStatusInterval persists a closed idle/offline period.
func (s *Store) InsertStatusInterval(ctx context.Context, iv *model.StatusInterval) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO status_intervals (user_id, status, start_time, end_time, duration_minutes)
		VALUES (?, ?, ?, ?, ?)`,
		iv.UserID, string(iv.Status), s.formatTime(iv.Start), s.formatTime(iv.End), iv.DurationMinutes)
	if err != nil {
		return fmt.Errorf("insert status interval: %w", err)
	}
	iv.ID, _ = res.LastInsertId()
	return nil
}

// ListStatusIntervals returns a user's intervals starting at or after the
// given instant, ordered by start time.
func (s *Store) ListStatusIntervals(ctx context.Context, userID string, from string) ([]*model.StatusInterval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, status, start_time, end_time, duration_minutes
		FROM status_intervals
		WHERE user_id = ? AND start_time >= ?
		ORDER BY start_time`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("list status intervals: %w", err)
	}
	defer rows.Close()

	var out []*model.StatusInterval
	for rows.Next() {
		var iv model.StatusInterval
		var start, end string
		if err := rows.Scan(&iv.ID, &iv.UserID, (*string)(&iv.Status), &start, &end, &iv.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan status interval: %w", err)
		}
		iv.Start = s.parseTime(start)
		iv.End = s.parseTime(end)
		out = append(out, &iv)
	}
	return out, rows.Err()
}

// InsertBreakInterval persists a completed break.
func (s *Store) InsertBreakInterval(ctx context.Context, b *model.BreakInterval) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO break_intervals (user_id, username, break_start, break_end, duration_minutes)
		VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Username, s.formatTime(b.Start), s.formatTime(b.End), b.DurationMinutes)
	if err != nil {
		return fmt.Errorf("insert break interval: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

// ListBreakIntervals returns a user's breaks starting at or after the given
// instant, ordered by start time.
func (s *Store) ListBreakIntervals(ctx context.Context, userID string, from string) ([]*model.BreakInterval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, break_start, break_end, duration_minutes
		FROM break_intervals
		WHERE user_id = ? AND break_start >= ?
		ORDER BY break_start`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("list break intervals: %w", err)
	}
	defer rows.Close()

	var out []*model.BreakInterval
	for rows.Next() {
		var b model.BreakInterval
		var start, end string
		if err := rows.Scan(&b.ID, &b.UserID, &b.Username, &start, &end, &b.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan break interval: %w", err)
		}
		b.Start = s.parseTime(start)
		b.End = s.parseTime(end)
		out = append(out, &b)
	}
	return out, rows.Err()
}
