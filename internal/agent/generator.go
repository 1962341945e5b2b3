package agent

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the service answers with no text.
	ErrEmptyResponse = errors.New("empty response from text generation service")
	// ErrAssistantUnavailable is returned when no service is configured.
	ErrAssistantUnavailable = errors.New("assistant is not configured")
)

// Generator produces an assistant reply for a transcript.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// UnavailableGenerator always fails. It is used when no credential is set so
// that users see the fallback reply instead of an error.
type UnavailableGenerator struct{}

// Generate returns ErrAssistantUnavailable.
func (UnavailableGenerator) Generate(context.Context, GenerateRequest) (string, error) {
	return "", ErrAssistantUnavailable
}
