package service

import "errors"

// Invalid-state rejections surfaced to the user. Handlers present these as
// ephemeral replies, never as failures.
var (
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrNotCheckedIn     = errors.New("not checked in")
	ErrAlreadyOnBreak   = errors.New("already on break")
	ErrNotOnBreak       = errors.New("not on break")
)
