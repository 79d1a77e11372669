package i18n

import (
	"embed"
	"encoding/json"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var localizer *i18n.Localizer

// Init parses the embedded catalogs and fixes the message locale. The
// notifier renders every outgoing message through T, so Init must run before
// any notification is sent.
func Init(locale string) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		log.Fatal().Err(err).Msg("i18n: read locales dir")
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			log.Fatal().Err(err).Str("file", e.Name()).Msg("i18n: read locale file")
		}
		bundle.MustParseMessageFileBytes(data, e.Name())
	}
	localizer = i18n.NewLocalizer(bundle, locale)
	log.Info().Int("files", len(entries)).Str("locale", locale).Msg("i18n: locales loaded")
}

// T renders a message by ID, with optional template data. An unknown ID
// falls back to the ID itself so a missing catalog entry degrades to an ugly
// message instead of a dropped notification.
func T(messageID string, templateData ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}
	msg, err := localizer.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}
