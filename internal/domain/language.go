package domain

import (
	"fmt"
	"strings"
)

// Language is the display language picked at the start of a session.
type Language string

const (
	LanguageHindi   Language = "hindi"
	LanguageEnglish Language = "english"
)

// Languages lists the supported display languages in picker order.
var Languages = []Language{LanguageHindi, LanguageEnglish}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageHindi || l == LanguageEnglish
}

// ParseLanguage normalizes s and returns the matching Language.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
	return l, nil
}

// Tab is a dashboard view.
type Tab string

const (
	TabOverview  Tab = "overview"
	TabApps      Tab = "apps"
	TabAssistant Tab = "assistant"
)

// DefaultTab is shown right after a language is picked.
const DefaultTab = TabOverview

// Tabs lists the dashboard tabs in navigation order.
var Tabs = []Tab{TabOverview, TabApps, TabAssistant}

// ParseTab returns the Tab named by s.
func ParseTab(s string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TabOverview, TabApps, TabAssistant:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}
