package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"shiftbot/internal/model"
	"shiftbot/internal/notify"
	"shiftbot/internal/service"
	"shiftbot/internal/timer"
)

// PresenceHandler wires presence events into the tracker: it applies the
// status transition, raises the cooldown-gated offline and mobile-only
// alerts, and arms or cancels the idle-warning timer.
type PresenceHandler struct {
	presence  *service.PresenceService
	shifts    *service.ShiftService
	timers    *timer.Coordinator
	notifier  notify.Notifier
	idleDelay time.Duration
	logger    zerolog.Logger
}

func NewPresenceHandler(presence *service.PresenceService, shifts *service.ShiftService,
	timers *timer.Coordinator, notifier notify.Notifier, idleDelay time.Duration, logger zerolog.Logger) *PresenceHandler {
	return &PresenceHandler{
		presence:  presence,
		shifts:    shifts,
		timers:    timers,
		notifier:  notifier,
		idleDelay: idleDelay,
		logger:    logger,
	}
}

// Handle processes one presence-change event.
func (h *PresenceHandler) Handle(ctx context.Context, ev model.PresenceEvent) {
	tr, err := h.presence.Apply(ctx, ev.UserID, ev.Status)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", ev.UserID).Msg("apply presence")
		return
	}
	if !tr.Tracked {
		return
	}

	if ev.Status == "offline" {
		if h.timers.AllowOnce(timer.GateOffline, ev.UserID) {
			req := notify.NewRequest(notify.CategoryOfflineAlert, notify.SeverityCritical, ev.UserID)
			req.ManagerCopy = true
			h.notifier.Send(ctx, req.With("username", ev.Username))
		}
	} else if ev.MobileOnly() {
		// Secondary-surface detail: warn, but the tracked category is
		// unaffected.
		if h.timers.AllowOnce(timer.GateMobile, ev.UserID) {
			req := notify.NewRequest(notify.CategoryMobileAlert, notify.SeverityWarning, ev.UserID)
			req.ManagerCopy = true
			h.notifier.Send(ctx, req.With("username", ev.Username))
		}
	}

	if !tr.Changed {
		return
	}
	switch {
	case tr.New == model.StatusIdle:
		userID, username := ev.UserID, ev.Username
		h.timers.ArmIdleWarning(userID, func() {
			h.fireIdleWarning(userID, username)
		})
	case tr.Old == model.StatusIdle:
		h.timers.CancelIdleWarning(ev.UserID)
	}
}

// fireIdleWarning runs when the idle timer expires. The timer is advisory:
// the persisted shift state decides whether the warning still applies.
func (h *PresenceHandler) fireIdleWarning(userID, username string) {
	ctx := context.Background()
	shift, err := h.shifts.ActiveShift(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("idle warning revalidation")
		return
	}
	if shift == nil || shift.OnBreak || shift.CurrentStatus != model.StatusIdle {
		return
	}

	req := notify.NewRequest(notify.CategoryIdleWarning, notify.SeverityWarning, userID)
	req.ManagerCopy = true
	h.notifier.Send(ctx, req.
		With("username", username).
		With("minutes", strconv.Itoa(int(h.idleDelay/time.Minute))))
}
