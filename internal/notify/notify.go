package notify

import (
	"context"

	"github.com/google/uuid"
)

// Category identifies what a notification is about. Rendering a request into
// a presentable message is the platform layer's job.
type Category string

const (
	CategoryIdleWarning  Category = "idle-warning"
	CategoryOfflineAlert Category = "offline-alert"
	CategoryMobileAlert  Category = "mobile-alert"
	CategoryBreakStarted Category = "break-started"
	CategoryBreakEnded   Category = "break-ended"
	CategoryShiftSummary Category = "shift-summary"

	// Daily sweep alerts.
	CategoryMissingCheckIn  Category = "missing-checkin"
	CategoryMissingCheckOut Category = "missing-checkout"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Request is a structured notification to be delivered to a user, optionally
// copied to the workspace owner.
type Request struct {
	ID          string
	Category    Category
	Severity    Severity
	RecipientID string
	ManagerCopy bool
	Fields      map[string]string
}

// NewRequest builds a request with a fresh ID and an empty field set.
func NewRequest(cat Category, sev Severity, recipientID string) Request {
	return Request{
		ID:          uuid.NewString(),
		Category:    cat,
		Severity:    sev,
		RecipientID: recipientID,
		Fields:      make(map[string]string),
	}
}

// With adds a named field and returns the request for chaining.
func (r Request) With(key, value string) Request {
	r.Fields[key] = value
	return r
}

// Notifier delivers notification requests. Implementations log and swallow
// delivery failures: a notification that cannot be delivered must never
// abort the state transition that produced it.
type Notifier interface {
	Send(ctx context.Context, req Request)
}

// Discard is a Notifier that drops everything. Useful in tests.
type Discard struct{}

func (Discard) Send(context.Context, Request) {}
