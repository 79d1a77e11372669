package model

import (
	"strings"
	"time"
)

// Schedule is an employee's expected working pattern, used only by the
// missing check-in/check-out sweeps. Times are "HH:MM" in the tracker zone.
type Schedule struct {
	UserID       string
	Username     string
	CheckInTime  string
	CheckOutTime string
	WorkDays     []string
}

// WorksOn reports whether the schedule covers the given weekday.
func (s Schedule) WorksOn(day time.Weekday) bool {
	name := strings.ToLower(day.String())
	for _, d := range s.WorkDays {
		if strings.ToLower(strings.TrimSpace(d)) == name {
			return true
		}
	}
	return false
}

// TimeOn resolves an "HH:MM" time-of-day string onto the given date.
func TimeOn(date time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, date.Location()), true
}
