package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shiftbot/internal/clock"
)

// GateKind names an anti-spam cooldown gate.
type GateKind string

const (
	GateOffline GateKind = "offline"
	GateMobile  GateKind = "mobile"
)

type gateKey struct {
	userID string
	kind   GateKind
}

// Coordinator owns the per-user delayed actions (idle-warning and break-end
// timers) and the notification cooldown gates. Timers are advisory triggers:
// the fire callback must re-read persisted state before acting, because a
// cancel racing with a fire is only best-effort.
type Coordinator struct {
	mu        sync.Mutex
	idle      map[string]*time.Timer
	breaks    map[string]*time.Timer
	gates     map[gateKey]time.Time
	clock     clock.Clock
	logger    zerolog.Logger
	idleDelay time.Duration
	cooldown  time.Duration
}

func NewCoordinator(clk clock.Clock, idleDelay, cooldown time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		idle:      make(map[string]*time.Timer),
		breaks:    make(map[string]*time.Timer),
		gates:     make(map[gateKey]time.Time),
		clock:     clk,
		logger:    logger,
		idleDelay: idleDelay,
		cooldown:  cooldown,
	}
}

// ArmIdleWarning schedules fire after the configured idle delay, replacing
// any pending idle timer for the user. One warning per idle episode: the
// timer removes itself before firing and is not rescheduled.
func (c *Coordinator) ArmIdleWarning(userID string, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.idle[userID]; ok {
		t.Stop()
	}
	c.idle[userID] = time.AfterFunc(c.idleDelay, func() {
		c.mu.Lock()
		delete(c.idle, userID)
		c.mu.Unlock()
		fire()
	})
	c.logger.Debug().Str("user_id", userID).Dur("delay", c.idleDelay).Msg("idle warning armed")
}

// CancelIdleWarning stops any pending idle timer for the user.
func (c *Coordinator) CancelIdleWarning(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.idle[userID]; ok {
		t.Stop()
		delete(c.idle, userID)
	}
}

// ArmBreakEnd schedules fire after d, replacing any pending break timer for
// the user.
func (c *Coordinator) ArmBreakEnd(userID string, d time.Duration, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.breaks[userID]; ok {
		t.Stop()
	}
	c.breaks[userID] = time.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.breaks, userID)
		c.mu.Unlock()
		fire()
	})
	c.logger.Debug().Str("user_id", userID).Dur("delay", d).Msg("break end armed")
}

// CancelBreakEnd stops any pending break timer for the user.
func (c *Coordinator) CancelBreakEnd(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.breaks[userID]; ok {
		t.Stop()
		delete(c.breaks, userID)
	}
}

// AllowOnce reports whether an alert of the given kind may be sent to the
// user now, and if so records the send time. Repeat alerts inside the
// cooldown window are suppressed.
func (c *Coordinator) AllowOnce(kind GateKind, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := gateKey{userID: userID, kind: kind}
	now := c.clock.Now()
	if last, ok := c.gates[key]; ok && now.Sub(last) < c.cooldown {
		return false
	}
	c.gates[key] = now
	return true
}

// ClearUser cancels the user's timers and resets their cooldown gates. Call
// on check-out so nothing leaks across shift boundaries.
func (c *Coordinator) ClearUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.idle[userID]; ok {
		t.Stop()
		delete(c.idle, userID)
	}
	if t, ok := c.breaks[userID]; ok {
		t.Stop()
		delete(c.breaks, userID)
	}
	delete(c.gates, gateKey{userID: userID, kind: GateOffline})
	delete(c.gates, gateKey{userID: userID, kind: GateMobile})
}
