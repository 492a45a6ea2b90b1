package website

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

// supportedLanguages lists the bundled locales, the first is the fallback.
var supportedLanguages = []language.Tag{language.English, language.Spanish}

// LoadBundle parses the embedded locale files.
func LoadBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.Glob(localeFiles, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(localeFiles, file); err != nil {
			return nil, fmt.Errorf("failed to load locale %s: %w", file, err)
		}
	}

	return bundle, nil
}

// Localizer translates message ids for one request.
type Localizer struct {
	loc  *i18n.Localizer
	Lang string
}

// T returns the translation of id. Missing messages render as their id.
func (l *Localizer) T(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}

	msg, err := l.loc.Localize(cfg)
	if err != nil {
		log.Debug().Err(err).Str("id", id).Msg("Missing translation")
		return id
	}
	return msg
}

type localizerKey struct{}

func matchLanguage(r *http.Request) language.Tag {
	matcher := language.NewMatcher(supportedLanguages)
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return supportedLanguages[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return supportedLanguages[idx]
}

// localize picks the request locale from Accept-Language.
func localize(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := matchLanguage(r)
			l := &Localizer{loc: i18n.NewLocalizer(bundle, tag.String()), Lang: tag.String()}
			ctx := context.WithValue(r.Context(), localizerKey{}, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func localizerFrom(ctx context.Context, bundle *i18n.Bundle) *Localizer {
	if l, ok := ctx.Value(localizerKey{}).(*Localizer); ok {
		return l
	}
	return &Localizer{loc: i18n.NewLocalizer(bundle, language.English.String()), Lang: language.English.String()}
}
