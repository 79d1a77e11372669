package platform

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"shiftbot/internal/model"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// PresenceFunc receives decoded presence-change events.
type PresenceFunc func(ctx context.Context, ev model.PresenceEvent)

// Gateway maintains the websocket subscription to the platform's event
// stream and dispatches presence-change events. It reconnects with backoff
// until its context is cancelled.
type Gateway struct {
	wsURL      string
	botToken   string
	onPresence PresenceFunc
	logger     zerolog.Logger

	initialDelay time.Duration
	maxDelay     time.Duration
}

func NewGateway(baseURL, botToken string, onPresence PresenceFunc, logger zerolog.Logger) *Gateway {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/api/v4/websocket"
	return &Gateway{
		wsURL:        wsURL,
		botToken:     botToken,
		onPresence:   onPresence,
		logger:       logger,
		initialDelay: initialReconnectDelay,
		maxDelay:     maxReconnectDelay,
	}
}

type gatewayEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type presenceData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Desktop  string `json:"desktop"`
	Mobile   string `json:"mobile"`
	Web      string `json:"web"`
}

// Run connects and consumes events until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	delay := g.initialDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		started := time.Now()
		if err := g.connectAndRead(ctx); err != nil {
			g.logger.Warn().Err(err).Dur("retry_in", delay).Msg("gateway connection lost")
		}
		// A connection that held for a while resets the backoff.
		if time.Since(started) > g.maxDelay {
			delay = g.initialDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > g.maxDelay {
			delay = g.maxDelay
		}
	}
}

func (g *Gateway) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Authenticate the event stream.
	auth := map[string]any{
		"seq":    1,
		"action": "authentication_challenge",
		"data":   map[string]string{"token": g.botToken},
	}
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}
	g.logger.Info().Str("url", g.wsURL).Msg("gateway connected")

	// The watcher must not outlive this connection, or every reconnect
	// cycle leaks a blocked goroutine.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev gatewayEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Event != "status_change" {
			continue
		}
		var data presenceData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			g.logger.Warn().Err(err).Msg("bad presence payload")
			continue
		}
		g.onPresence(ctx, model.PresenceEvent{
			UserID:   data.UserID,
			Username: data.Username,
			Status:   data.Status,
			Desktop:  data.Desktop,
			Mobile:   data.Mobile,
			Web:      data.Web,
		})
	}
}
