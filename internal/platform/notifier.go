package platform

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"shiftbot/internal/i18n"
	"shiftbot/internal/notify"
)

// Notifier delivers notification requests as platform direct messages,
// optionally copying the workspace owner. Delivery failures are logged and
// swallowed so a dropped message never breaks the state transition behind
// it.
type Notifier struct {
	client  *Client
	ownerID string
	logger  zerolog.Logger
}

func NewNotifier(client *Client, ownerID string, logger zerolog.Logger) *Notifier {
	return &Notifier{client: client, ownerID: ownerID, logger: logger}
}

func (n *Notifier) Send(ctx context.Context, req notify.Request) {
	data := make(map[string]any, len(req.Fields))
	for k, v := range req.Fields {
		data[k] = v
	}

	attachment := Attachment{
		Title: i18n.T("notify." + string(req.Category) + ".title"),
		Text:  i18n.T("notify."+string(req.Category)+".body", data),
		Color: severityColor(req.Severity),
	}
	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attachment.Fields = append(attachment.Fields, Field{Title: k, Value: req.Fields[k], Short: true})
	}

	if err := n.client.SendDM(req.RecipientID, "", Props{Attachments: []Attachment{attachment}}); err != nil {
		n.logger.Warn().Err(err).
			Str("notification_id", req.ID).
			Str("category", string(req.Category)).
			Str("recipient", req.RecipientID).
			Msg("notification dropped")
	}

	if req.ManagerCopy && n.ownerID != "" && n.ownerID != req.RecipientID {
		body := i18n.T("notify.manager."+string(req.Category), data)
		if err := n.client.SendDM(n.ownerID, body, Props{}); err != nil {
			n.logger.Warn().Err(err).
				Str("notification_id", req.ID).
				Msg("manager copy dropped")
		}
	}
}

func severityColor(s notify.Severity) string {
	switch s {
	case notify.SeverityCritical:
		return "#d24b4e"
	case notify.SeverityWarning:
		return "#f2a93b"
	default:
		return "#3b9bf2"
	}
}
