package model

import (
	"time"
)

// Status is the tracked presence category relevant to time accounting.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusOffline Status = "offline"
)

// TrackedStatus maps a raw platform presence value to a tracked category.
// Do-not-disturb counts as active work. Unknown values report ok=false.
func TrackedStatus(platform string) (Status, bool) {
	switch platform {
	case "online", "dnd":
		return StatusOnline, true
	case "idle":
		return StatusIdle, true
	case "offline":
		return StatusOffline, true
	}
	return "", false
}

// ActiveShift is the single in-progress shift for a checked-in user.
// While OnBreak is set, CurrentStatus is frozen and presence changes are
// ignored.
type ActiveShift struct {
	UserID        string
	Username      string
	CheckIn       time.Time
	CurrentStatus Status
	StatusStart   time.Time
	OnBreak       bool
	BreakStart    *time.Time
}

// StatusInterval is a closed idle or offline period within a shift. Online
// time is implicit: it is whatever remains of the shift after the tracked
// intervals and breaks.
type StatusInterval struct {
	ID              int64
	UserID          string
	Status          Status
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// BreakInterval is a completed break. DurationMinutes is capped at the
// configured break length even if the break ran long.
type BreakInterval struct {
	ID              int64
	UserID          string
	Username        string
	Start           time.Time
	End             time.Time
	DurationMinutes int
}

// ShiftSummary is the immutable completed-shift record written once at
// check-out.
type ShiftSummary struct {
	ID             int64
	UserID         string
	Username       string
	CheckIn        time.Time
	CheckOut       time.Time
	TotalMinutes   int
	ActiveMinutes  int
	IdleMinutes    int
	OfflineMinutes int
	BreakMinutes   int
}
