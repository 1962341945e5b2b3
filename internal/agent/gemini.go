package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/studylock/studylock/internal/domain"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// contentGenerator is the slice of the genai client we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator answers through the Gemini API.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

// Ensure GeminiGenerator implements Generator.
var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini-backed generator. The timeout bounds
// each HTTP round trip; there is no other deadline.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrAssistantUnavailable
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGenerator{models: client.Models, model: cfg.Model}, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the transcript to Gemini and returns the reply text.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, toContents(req.Turns), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// toContents maps transcript turns to Gemini contents; assistant turns use
// the "model" role.
func toContents(turns []domain.ChatTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := string(genai.RoleUser)
		if turn.Role == domain.RoleAssistant {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return contents
}

// NewDefaultGenerator returns a Gemini generator, or UnavailableGenerator
// when no credential is configured or the client cannot be built. The
// boolean reports whether the assistant is backed by Gemini.
func NewDefaultGenerator(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (Generator, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	gen, err := NewGeminiGenerator(ctx, cfg)
	if err != nil {
		if errors.Is(err, ErrAssistantUnavailable) {
			logger.Info("AI features disabled (GEMINI_API_KEY not set)")
		} else {
			logger.Warn("Failed to initialize Gemini client, AI features will be disabled", "error", err)
		}
		return UnavailableGenerator{}, false
	}
	logger.Info("Gemini assistant enabled", "model", gen.Model())
	return gen, true
}
