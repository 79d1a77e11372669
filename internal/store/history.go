package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shiftbot/internal/model"
)

// CompleteShift closes the user's active shift at the given instant and
// returns the completed summary. The whole computation runs in one
// transaction so the interval sums and the shift row cannot drift apart.
// Returns (nil, nil) if the user has no active shift.
//
// The still-open tracked status and any in-progress break are folded into
// the category buckets from the live row; no interval row is persisted for
// them.
func (s *Store) CompleteShift(ctx context.Context, userID string, now time.Time, breakCap time.Duration) (*model.ShiftSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT user_id, username, check_in_time, current_status, status_start_time, on_break, break_start_time
		FROM active_shifts WHERE user_id = ?`, userID)
	shift, err := s.scanActiveShift(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active shift: %w", err)
	}

	checkInStr := s.formatTime(shift.CheckIn)
	totalMin := wholeMinutes(now.Sub(shift.CheckIn))

	var idleMin, offlineMin int
	rows, err := tx.QueryContext(ctx, `
		SELECT status, COALESCE(SUM(duration_minutes), 0)
		FROM status_intervals
		WHERE user_id = ? AND start_time >= ?
		GROUP BY status`, userID, checkInStr)
	if err != nil {
		return nil, fmt.Errorf("sum status intervals: %w", err)
	}
	for rows.Next() {
		var status string
		var mins int
		if err := rows.Scan(&status, &mins); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status sum: %w", err)
		}
		switch model.Status(status) {
		case model.StatusIdle:
			idleMin = mins
		case model.StatusOffline:
			offlineMin = mins
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sum status intervals: %w", err)
	}

	var breakMin int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM break_intervals
		WHERE user_id = ? AND break_start >= ?`, userID, checkInStr).Scan(&breakMin); err != nil {
		return nil, fmt.Errorf("sum break intervals: %w", err)
	}

	capMin := wholeMinutes(breakCap)
	statusEnd := now
	if shift.OnBreak && shift.BreakStart != nil {
		elapsed := wholeMinutes(now.Sub(*shift.BreakStart))
		if elapsed > capMin {
			elapsed = capMin
		}
		breakMin += elapsed
		// The frozen status stopped accruing when the break began.
		statusEnd = *shift.BreakStart
	}
	if shift.CurrentStatus == model.StatusIdle || shift.CurrentStatus == model.StatusOffline {
		// A tracked status still open at checkout is reconciled here rather
		// than persisted as an interval.
		if open := statusEnd.Sub(shift.StatusStart); open > time.Minute {
			if shift.CurrentStatus == model.StatusIdle {
				idleMin += wholeMinutes(open)
			} else {
				offlineMin += wholeMinutes(open)
			}
		}
	}

	activeMin := totalMin - idleMin - offlineMin - breakMin
	if activeMin < 0 {
		activeMin = 0
	}

	summary := &model.ShiftSummary{
		UserID:         shift.UserID,
		Username:       shift.Username,
		CheckIn:        shift.CheckIn,
		CheckOut:       now,
		TotalMinutes:   totalMin,
		ActiveMinutes:  activeMin,
		IdleMinutes:    idleMin,
		OfflineMinutes: offlineMin,
		BreakMinutes:   breakMin,
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO shift_history (user_id, username, check_in_time, check_out_time,
			total_minutes, active_minutes, idle_minutes, offline_minutes, break_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.UserID, summary.Username, checkInStr, s.formatTime(now),
		summary.TotalMinutes, summary.ActiveMinutes, summary.IdleMinutes,
		summary.OfflineMinutes, summary.BreakMinutes)
	if err != nil {
		return nil, fmt.Errorf("insert shift history: %w", err)
	}
	summary.ID, _ = res.LastInsertId()

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_shifts WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("delete active shift: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	return summary, nil
}

// UserStats sums a user's completed shifts with check-in at or after cutoff.
func (s *Store) UserStats(ctx context.Context, userID string, cutoff time.Time) (*model.PeriodStats, error) {
	var p model.PeriodStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_minutes), 0),
		       COALESCE(SUM(active_minutes), 0),
		       COALESCE(SUM(idle_minutes), 0),
		       COALESCE(SUM(offline_minutes), 0),
		       COALESCE(SUM(break_minutes), 0)
		FROM shift_history
		WHERE user_id = ? AND check_in_time >= ?`, userID, s.formatTime(cutoff)).
		Scan(&p.Shifts, &p.TotalMinutes, &p.ActiveMinutes, &p.IdleMinutes, &p.OfflineMinutes, &p.BreakMinutes)
	if err != nil {
		return nil, fmt.Errorf("sum user stats: %w", err)
	}
	return &p, nil
}

// DailyStats groups a user's completed shifts by calendar date of check-in,
// most recent first.
func (s *Store) DailyStats(ctx context.Context, userID string, cutoff time.Time) ([]*model.DayStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(check_in_time, 1, 10) AS shift_date,
		       COUNT(*),
		       COALESCE(SUM(total_minutes), 0),
		       COALESCE(SUM(active_minutes), 0),
		       COALESCE(SUM(idle_minutes), 0),
		       COALESCE(SUM(offline_minutes), 0),
		       COALESCE(SUM(break_minutes), 0)
		FROM shift_history
		WHERE user_id = ? AND check_in_time >= ?
		GROUP BY shift_date
		ORDER BY shift_date DESC`, userID, s.formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("group daily stats: %w", err)
	}
	defer rows.Close()

	var out []*model.DayStats
	for rows.Next() {
		var d model.DayStats
		if err := rows.Scan(&d.Date, &d.Shifts, &d.TotalMinutes, &d.ActiveMinutes,
			&d.IdleMinutes, &d.OfflineMinutes, &d.BreakMinutes); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// RangeStats groups completed shifts by user for check-in dates within
// [startDate, endDate] (YYYY-MM-DD, inclusive).
func (s *Store) RangeStats(ctx context.Context, startDate, endDate string) ([]*model.UserPeriodStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username,
		       COUNT(*),
		       COALESCE(SUM(total_minutes), 0),
		       COALESCE(SUM(active_minutes), 0),
		       COALESCE(SUM(idle_minutes), 0),
		       COALESCE(SUM(offline_minutes), 0),
		       COALESCE(SUM(break_minutes), 0)
		FROM shift_history
		WHERE substr(check_in_time, 1, 10) BETWEEN ? AND ?
		GROUP BY user_id, username`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("group range stats: %w", err)
	}
	defer rows.Close()

	var out []*model.UserPeriodStats
	for rows.Next() {
		var u model.UserPeriodStats
		if err := rows.Scan(&u.UserID, &u.Username, &u.Shifts, &u.TotalMinutes,
			&u.ActiveMinutes, &u.IdleMinutes, &u.OfflineMinutes, &u.BreakMinutes); err != nil {
			return nil, fmt.Errorf("scan range stats: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// CountShiftsOn reports how many completed shifts a user has with check-in on
// the given date (YYYY-MM-DD).
func (s *Store) CountShiftsOn(ctx context.Context, userID, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shift_history
		WHERE user_id = ? AND substr(check_in_time, 1, 10) = ?`, userID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count shifts on date: %w", err)
	}
	return n, nil
}

func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}
