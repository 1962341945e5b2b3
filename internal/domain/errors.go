package domain

import "errors"

// Validation errors. Callers match them with errors.Is; none of them leave
// state partially modified.
var (
	ErrLanguageNotSelected     = errors.New("language not selected")
	ErrLanguageAlreadySelected = errors.New("language already selected")
	ErrUnknownLanguage         = errors.New("unknown language")
	ErrUnknownTab              = errors.New("unknown tab")
	ErrAppNotFound             = errors.New("app not found")
	ErrDuplicateApp            = errors.New("duplicate app id")
	ErrUnknownIcon             = errors.New("icon not in palette")
	ErrEmptyMessage            = errors.New("message is empty")
	ErrExchangePending         = errors.New("exchange already in flight")
)
