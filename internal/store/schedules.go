package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shiftbot/internal/model"
)

// UpsertSchedule creates or replaces an employee's expected working pattern.
func (s *Store) UpsertSchedule(ctx context.Context, sched *model.Schedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee_schedules (user_id, username, check_in_time, check_out_time, work_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			check_in_time = excluded.check_in_time,
			check_out_time = excluded.check_out_time,
			work_days = excluded.work_days`,
		sched.UserID, sched.Username, sched.CheckInTime, sched.CheckOutTime,
		strings.Join(sched.WorkDays, ","))
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// GetSchedule returns the user's schedule, or nil if none is set.
func (s *Store) GetSchedule(ctx context.Context, userID string) (*model.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, check_in_time, check_out_time, work_days
		FROM employee_schedules WHERE user_id = ?`, userID)
	sched, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return sched, nil
}

// ListSchedules returns all employee schedules.
func (s *Store) ListSchedules(ctx context.Context) ([]*model.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, check_in_time, check_out_time, work_days
		FROM employee_schedules ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []*model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func scanSchedule(scan func(...any) error) (*model.Schedule, error) {
	var sched model.Schedule
	var days string
	if err := scan(&sched.UserID, &sched.Username, &sched.CheckInTime, &sched.CheckOutTime, &days); err != nil {
		return nil, err
	}
	if days != "" {
		sched.WorkDays = strings.Split(days, ",")
	}
	return &sched, nil
}

// MarkReported records that an alert of the given kind went out for a
// user/date pair. Returns false if it was already recorded, so each sweep
// alert is sent at most once per day.
func (s *Store) MarkReported(ctx context.Context, date, kind, userID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO report_log (report_date, kind, user_id, sent_at)
		VALUES (?, ?, ?, ?)`, date, kind, userID, s.formatTime(at))
	if err != nil {
		return false, fmt.Errorf("mark reported: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark reported: %w", err)
	}
	return n > 0, nil
}
