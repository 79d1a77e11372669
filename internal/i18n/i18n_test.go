package i18n

import (
	"strings"
	"testing"
)

func TestRenderCatalogMessages(t *testing.T) {
	Init("en")

	title := T("notify.idle-warning.title")
	if title == "notify.idle-warning.title" || title == "" {
		t.Fatalf("title not rendered: %q", title)
	}

	body := T("notify.break-started.body", map[string]any{
		"username": "alice",
		"ends_at":  "09:40",
	})
	if !strings.Contains(body, "09:40") {
		t.Fatalf("template data not substituted: %q", body)
	}

	// Every category the notifier can emit has user and, where flagged,
	// manager variants.
	for _, id := range []string{
		"notify.idle-warning.body",
		"notify.offline-alert.body",
		"notify.mobile-alert.body",
		"notify.break-ended.body",
		"notify.shift-summary.body",
		"notify.missing-checkin.body",
		"notify.missing-checkout.body",
		"notify.manager.offline-alert",
		"notify.manager.missing-checkin",
		"notify.manager.missing-checkout",
	} {
		if got := T(id, map[string]any{}); got == id {
			t.Errorf("missing catalog entry %s", id)
		}
	}
}

func TestUnknownIDFallsBackToID(t *testing.T) {
	Init("en")
	if got := T("notify.no-such-message.title"); got != "notify.no-such-message.title" {
		t.Fatalf("expected ID fallback, got %q", got)
	}
}
