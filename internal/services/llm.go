package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/turnkeeper/internal/config"
	"github.com/jwebster45206/turnkeeper/pkg/chat"
)

// LLMService is a chat completion backend.
type LLMService interface {
	// Chat sends one request. Requests with Backend set run on the backend
	// model when one is configured.
	Chat(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error)

	// Close releases any connection held by the backend.
	Close() error
}

// NewLLMService creates the backend selected by cfg.LLMProvider.
func NewLLMService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.BackendModelName, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName, cfg.BackendModelName, logger), nil
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.BackendModelName, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// pickModel returns the backend model for bookkeeping requests when set.
func pickModel(req *chat.ChatRequest, model, backendModel string) string {
	if req.Backend && backendModel != "" {
		return backendModel
	}
	return model
}
