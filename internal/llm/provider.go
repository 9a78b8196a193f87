// Package llm wraps the hosted generative models the companion chat can talk to.
// Every provider takes one fully rendered prompt and returns the raw text the
// model produced; parsing that text is the caller's job.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnshRaj112/safeharbor-backend/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// Provider generates a completion for a single prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	case ProviderVertex:
		return NewVertex(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Timeout())
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
