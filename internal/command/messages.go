package command

import (
	"embed"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var supportedLocales = []language.Tag{language.English, language.German}

// newLocalizer loads the embedded catalogs and picks locale, falling back
// to English for anything unsupported.
func newLocalizer(locale string) (*i18n.Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, f := range []string{"locales/active.en.yaml", "locales/active.de.yaml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", locale, err)
		}
		matcher := language.NewMatcher(supportedLocales)
		_, idx, _ := matcher.Match(parsed)
		tag = supportedLocales[idx]
	}
	return i18n.NewLocalizer(bundle, tag.String()), nil
}

func (s *Service) message(id string, data map[string]any) string {
	msg, err := s.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}
