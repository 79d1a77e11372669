package model

// PeriodStats are summed category minutes over a set of completed shifts.
type PeriodStats struct {
	Shifts         int
	TotalMinutes   int
	ActiveMinutes  int
	IdleMinutes    int
	OfflineMinutes int
	BreakMinutes   int
}

// DayStats is a per-calendar-date breakdown (date is YYYY-MM-DD).
type DayStats struct {
	Date string
	PeriodStats
}

// UserPeriodStats groups a period's totals by employee for range reports and
// leaderboards.
type UserPeriodStats struct {
	UserID   string
	Username string
	PeriodStats
}

// Productivity is active time as a percentage of total time, 0 when no time
// was recorded.
func (p PeriodStats) Productivity() float64 {
	if p.TotalMinutes == 0 {
		return 0
	}
	return float64(p.ActiveMinutes) / float64(p.TotalMinutes) * 100
}
