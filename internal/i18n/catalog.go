// Package i18n provides the localized strings of the dashboard.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/studylock/studylock/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Strings is the localized text for one language.
type Strings struct {
	Greeting    string            `yaml:"greeting" json:"greeting"`
	Fallback    string            `yaml:"fallback" json:"fallback"`
	Placeholder string            `yaml:"placeholder" json:"placeholder"`
	DateLocale  string            `yaml:"date_locale" json:"date_locale"`
	Labels      map[string]string `yaml:"labels" json:"labels"`
	QuickTips   []string          `yaml:"quick_tips" json:"quick_tips"`
}

// Label returns the label for key, or key itself when it is missing.
func (s Strings) Label(key string) string {
	if v, ok := s.Labels[key]; ok {
		return v
	}
	return key
}

// Catalog maps every supported language to its strings.
type Catalog struct {
	langs map[domain.Language]Strings
}

// Parse decodes a YAML catalog and checks that every supported language has
// a greeting and a fallback.
func Parse(data []byte) (*Catalog, error) {
	raw := make(map[string]Strings)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{langs: make(map[domain.Language]Strings, len(raw))}
	for key, s := range raw {
		lang, err := domain.ParseLanguage(key)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", key, err)
		}
		c.langs[lang] = s
	}

	for _, lang := range domain.Languages {
		s, ok := c.langs[lang]
		if !ok {
			return nil, fmt.Errorf("catalog missing language %q", lang)
		}
		if strings.TrimSpace(s.Greeting) == "" || strings.TrimSpace(s.Fallback) == "" {
			return nil, fmt.Errorf("catalog language %q needs greeting and fallback", lang)
		}
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic("i18n: embedded catalog is invalid: " + err.Error())
	}
	return c
}

// For returns the strings for lang, falling back to English.
func (c *Catalog) For(lang domain.Language) Strings {
	if s, ok := c.langs[lang]; ok {
		return s
	}
	return c.langs[domain.LanguageEnglish]
}
