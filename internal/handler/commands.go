package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shiftbot/internal/clock"
	"shiftbot/internal/notify"
	"shiftbot/internal/service"
	"shiftbot/internal/timer"
)

// UserResolver maps a display username to the platform's opaque user ID.
// Store rows are keyed by ID, so `/stats @name` needs the lookup.
type UserResolver interface {
	ResolveUsername(username string) (string, error)
}

// CommandHandler serves the platform's slash-command callbacks.
type CommandHandler struct {
	shifts    *service.ShiftService
	stats     *service.StatsService
	schedules *service.ScheduleService
	timers    *timer.Coordinator
	notifier  notify.Notifier
	users     UserResolver
	clock     clock.Clock
	logger    zerolog.Logger
}

func NewCommandHandler(shifts *service.ShiftService, stats *service.StatsService,
	schedules *service.ScheduleService, timers *timer.Coordinator, notifier notify.Notifier,
	users UserResolver, clk clock.Clock, logger zerolog.Logger) *CommandHandler {
	return &CommandHandler{
		shifts:    shifts,
		stats:     stats,
		schedules: schedules,
		timers:    timers,
		notifier:  notifier,
		users:     users,
		clock:     clk,
		logger:    logger,
	}
}

func (h *CommandHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/commands/checkin", h.HandleCheckIn)
	r.Post("/api/commands/checkout", h.HandleCheckOut)
	r.Post("/api/commands/break", h.HandleBreakStart)
	r.Post("/api/commands/breakend", h.HandleBreakEnd)
	r.Post("/api/commands/mystats", h.HandleMyStats)
	r.Post("/api/commands/stats", h.HandleStats)
	r.Post("/api/commands/whoisin", h.HandleWhoIsIn)
	r.Post("/api/commands/leaderboard", h.HandleLeaderboard)
	r.Post("/api/commands/schedule", h.HandleSchedule)
}

// SlashResponse is the reply to a slash command.
type SlashResponse struct {
	ResponseType string `json:"response_type"` // "ephemeral" or "in_channel"
	Text         string `json:"text,omitempty"`
}

func (h *CommandHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	userID, username, _ := parseCommand(w, r)
	if userID == "" {
		return
	}

	shift, err := h.shifts.CheckIn(r.Context(), userID, username)
	if errors.Is(err, service.ErrAlreadyCheckedIn) {
		writeEphemeral(w, "You're already checked in! Use `/checkout` to end your shift first.")
		return
	}
	if err != nil {
		h.serverError(w, "check-in", err)
		return
	}

	writeJSON(w, SlashResponse{
		ResponseType: "in_channel",
		Text: fmt.Sprintf("✅ **@%s** checked in at %s. Use `/checkout` when done.",
			username, shift.CheckIn.Format("15:04")),
	})
}

func (h *CommandHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	userID, username, _ := parseCommand(w, r)
	if userID == "" {
		return
	}

	summary, err := h.shifts.CheckOut(r.Context(), userID)
	if errors.Is(err, service.ErrNotCheckedIn) {
		writeEphemeral(w, "You're not checked in! Use `/checkin` to start your shift first.")
		return
	}
	if err != nil {
		h.serverError(w, "check-out", err)
		return
	}

	// The shift is closed: drop pending timers and cooldown state so
	// nothing leaks into the next shift.
	h.timers.ClearUser(userID)

	req := notify.NewRequest(notify.CategoryShiftSummary, notify.SeverityInfo, userID)
	h.notifier.Send(r.Context(), req.
		With("username", username).
		With("total_hours", fmtHours(summary.TotalMinutes)).
		With("active_hours", fmtHours(summary.ActiveMinutes)).
		With("break_hours", fmtHours(summary.BreakMinutes)))

	writeJSON(w, SlashResponse{
		ResponseType: "in_channel",
		Text: fmt.Sprintf(
			"✅ **@%s** checked out.\n| | |\n|:--|:--|\n| **Shift** | %s – %s |\n| **Total** | %sh |\n| **Active** | %sh |\n| **Idle** | %sh |\n| **Offline** | %sh |\n| **Breaks** | %sh |",
			username,
			summary.CheckIn.Format("15:04"), summary.CheckOut.Format("15:04"),
			fmtHours(summary.TotalMinutes), fmtHours(summary.ActiveMinutes),
			fmtHours(summary.IdleMinutes), fmtHours(summary.OfflineMinutes),
			fmtHours(summary.BreakMinutes)),
	})
}

func (h *CommandHandler) HandleBreakStart(w http.ResponseWriter, r *http.Request) {
	userID, username, _ := parseCommand(w, r)
	if userID == "" {
		return
	}

	endsAt, err := h.shifts.StartBreak(r.Context(), userID)
	if errors.Is(err, service.ErrNotCheckedIn) {
		writeEphemeral(w, "You must check in first before taking a break!")
		return
	}
	if errors.Is(err, service.ErrAlreadyOnBreak) {
		writeEphemeral(w, "You're already on break!")
		return
	}
	if err != nil {
		h.serverError(w, "break start", err)
		return
	}

	// Breaks suspend status tracking, so any pending idle warning is moot.
	h.timers.CancelIdleWarning(userID)
	h.timers.ArmBreakEnd(userID, h.shifts.BreakLength(), func() {
		h.fireBreakEnd(userID, username)
	})

	req := notify.NewRequest(notify.CategoryBreakStarted, notify.SeverityInfo, userID)
	h.notifier.Send(r.Context(), req.
		With("username", username).
		With("ends_at", endsAt.Format("15:04")))

	writeJSON(w, SlashResponse{
		ResponseType: "in_channel",
		Text: fmt.Sprintf("☕ **@%s** is on break until %s (%d minutes).",
			username, endsAt.Format("15:04"), int(h.shifts.BreakLength()/time.Minute)),
	})
}

// fireBreakEnd runs when the break timer expires. EndBreak is idempotent: if
// the break was already ended explicitly (or the shift checked out), this is
// a no-op.
func (h *CommandHandler) fireBreakEnd(userID, username string) {
	ctx := context.Background()
	minutes, err := h.shifts.EndBreak(ctx, userID)
	if errors.Is(err, service.ErrNotOnBreak) || errors.Is(err, service.ErrNotCheckedIn) {
		// Break already ended or shift already closed.
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("auto break end failed")
		return
	}

	req := notify.NewRequest(notify.CategoryBreakEnded, notify.SeverityInfo, userID)
	h.notifier.Send(ctx, req.
		With("username", username).
		With("minutes", strconv.Itoa(minutes)))
}

func (h *CommandHandler) HandleBreakEnd(w http.ResponseWriter, r *http.Request) {
	userID, username, _ := parseCommand(w, r)
	if userID == "" {
		return
	}

	minutes, err := h.shifts.EndBreak(r.Context(), userID)
	if errors.Is(err, service.ErrNotCheckedIn) {
		writeEphemeral(w, "You're not checked in!")
		return
	}
	if errors.Is(err, service.ErrNotOnBreak) {
		writeEphemeral(w, "You're not on break!")
		return
	}
	if err != nil {
		h.serverError(w, "break end", err)
		return
	}

	h.timers.CancelBreakEnd(userID)

	writeJSON(w, SlashResponse{
		ResponseType: "in_channel",
		Text:         fmt.Sprintf("✅ **@%s** ended their break after %d minute(s).", username, minutes),
	})
}

func (h *CommandHandler) HandleMyStats(w http.ResponseWriter, r *http.Request) {
	userID, username, text := parseCommand(w, r)
	if userID == "" {
		return
	}
	days := parseDays(text, 7)
	h.writeStats(w, r, userID, username, days)
}

func (h *CommandHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, _, text := parseCommand(w, r)
	if userID == "" {
		return
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		writeEphemeral(w, "Usage: `/stats <user> [days]`")
		return
	}
	target := strings.TrimPrefix(fields[0], "@")
	days := 7
	if len(fields) > 1 {
		days = parseDays(fields[1], 7)
	}
	targetID, err := h.users.ResolveUsername(target)
	if err != nil {
		h.logger.Warn().Err(err).Str("username", target).Msg("username lookup failed")
		writeEphemeral(w, fmt.Sprintf("Unknown user @%s.", target))
		return
	}
	h.writeStats(w, r, targetID, target, days)
}

func (h *CommandHandler) writeStats(w http.ResponseWriter, r *http.Request, userID, username string, days int) {
	overall, err := h.stats.UserStats(r.Context(), userID, days)
	if err != nil {
		h.serverError(w, "stats", err)
		return
	}
	daily, err := h.stats.DailyStats(r.Context(), userID, days)
	if err != nil {
		h.serverError(w, "stats", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### 📊 Work Statistics — @%s (last %d days)\n", username, days)
	fmt.Fprintf(&b, "**Total:** %sh | **Active:** %sh | **Idle:** %sh | **Breaks:** %sh | **Shifts:** %d\n",
		fmtHours(overall.TotalMinutes), fmtHours(overall.ActiveMinutes),
		fmtHours(overall.IdleMinutes), fmtHours(overall.BreakMinutes), overall.Shifts)
	if len(daily) == 0 {
		b.WriteString("\nNo shifts recorded in this period.")
	}
	for _, day := range daily {
		fmt.Fprintf(&b, "\n**%s** — %sh total, %sh active, %sh break (%d shift(s))",
			day.Date, fmtHours(day.TotalMinutes), fmtHours(day.ActiveMinutes),
			fmtHours(day.BreakMinutes), day.Shifts)
	}

	if shift, err := h.shifts.ActiveShift(r.Context(), userID); err == nil && shift != nil {
		elapsed := h.clock.Now().Sub(shift.CheckIn)
		state := fmt.Sprintf("🟢 %s", shift.CurrentStatus)
		if shift.OnBreak {
			state = "☕ on break"
		}
		fmt.Fprintf(&b, "\n\n🔄 Current shift: %s — %s", state, fmtElapsed(elapsed))
	}

	writeJSON(w, SlashResponse{ResponseType: "ephemeral", Text: b.String()})
}

func (h *CommandHandler) HandleWhoIsIn(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.stats.ActiveShiftsSnapshot(r.Context())
	if err != nil {
		h.serverError(w, "whoisin", err)
		return
	}
	if len(snaps) == 0 {
		writeEphemeral(w, "No employees are currently checked in.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### 👥 Currently Checked In (%d)\n", len(snaps))
	for _, snap := range snaps {
		state := fmt.Sprintf("🟢 %s", snap.Shift.CurrentStatus)
		if snap.Shift.OnBreak {
			state = fmt.Sprintf("☕ on break (%d min left)", int(snap.BreakRemaining/time.Minute))
		}
		fmt.Fprintf(&b, "- **@%s** — %s, shift %s\n", snap.Shift.Username, state, fmtElapsed(snap.Elapsed))
	}
	writeJSON(w, SlashResponse{ResponseType: "ephemeral", Text: b.String()})
}

func (h *CommandHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	text := r.FormValue("text")

	now := h.clock.Now()
	start := now.AddDate(0, 0, -7).Format(time.DateOnly)
	end := now.Format(time.DateOnly)
	if fields := strings.Fields(text); len(fields) == 2 {
		if _, err := time.Parse(time.DateOnly, fields[0]); err != nil {
			writeEphemeral(w, "Usage: `/leaderboard [YYYY-MM-DD YYYY-MM-DD]`")
			return
		}
		if _, err := time.Parse(time.DateOnly, fields[1]); err != nil {
			writeEphemeral(w, "Usage: `/leaderboard [YYYY-MM-DD YYYY-MM-DD]`")
			return
		}
		start, end = fields[0], fields[1]
	}

	report, err := h.stats.RangeReport(r.Context(), start, end)
	if err != nil {
		h.serverError(w, "leaderboard", err)
		return
	}
	if len(report) == 0 {
		writeEphemeral(w, fmt.Sprintf("No completed shifts between %s and %s.", start, end))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### 🏆 Leaderboard %s – %s\n", start, end)
	for i, u := range report {
		fmt.Fprintf(&b, "%d. **@%s** — %.1f%% productive (%sh active of %sh, %d shift(s))\n",
			i+1, u.Username, u.Productivity(), fmtHours(u.ActiveMinutes),
			fmtHours(u.TotalMinutes), u.Shifts)
	}
	writeJSON(w, SlashResponse{ResponseType: "in_channel", Text: b.String()})
}

func (h *CommandHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	userID, username, text := parseCommand(w, r)
	if userID == "" {
		return
	}

	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] == "show" {
		sched, err := h.schedules.Get(r.Context(), userID)
		if err != nil {
			h.serverError(w, "schedule", err)
			return
		}
		if sched == nil {
			writeEphemeral(w, "No schedule set. Usage: `/schedule HH:MM HH:MM mon,tue,...`")
			return
		}
		writeEphemeral(w, fmt.Sprintf("Your schedule: %s–%s on %s.",
			sched.CheckInTime, sched.CheckOutTime, strings.Join(sched.WorkDays, ", ")))
		return
	}

	if len(fields) != 3 {
		writeEphemeral(w, "Usage: `/schedule HH:MM HH:MM monday,tuesday,...`")
		return
	}
	sched, err := h.schedules.Set(r.Context(), userID, username, fields[0], fields[1], strings.Split(fields[2], ","))
	if err != nil {
		writeEphemeral(w, err.Error())
		return
	}
	writeEphemeral(w, fmt.Sprintf("Schedule saved: %s–%s on %s.",
		sched.CheckInTime, sched.CheckOutTime, strings.Join(sched.WorkDays, ", ")))
}

func (h *CommandHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error().Err(err).Str("op", op).Msg("command failed")
	writeEphemeral(w, "An error occurred. Please try again.")
}

func parseCommand(w http.ResponseWriter, r *http.Request) (userID, username, text string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return "", "", ""
	}
	return r.FormValue("user_id"), r.FormValue("user_name"), r.FormValue("text")
}

func parseDays(text string, fallback int) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func fmtHours(minutes int) string {
	return strconv.FormatFloat(float64(minutes)/60, 'f', 1, 64)
}

func fmtElapsed(d time.Duration) string {
	hours := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	return fmt.Sprintf("%dh %dm", hours, mins)
}

func writeEphemeral(w http.ResponseWriter, text string) {
	writeJSON(w, SlashResponse{ResponseType: "ephemeral", Text: text})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
