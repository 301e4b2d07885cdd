package providers

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewChatModel picks the eino chat model implementation for cfg.Provider.
func NewChatModel(ctx context.Context, cfg model.CompletionConfig) (einomodel.BaseChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOllama:
		return NewOllamaChatModel(ctx, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, nil)
	case ProviderOpenAI:
		return NewOpenAIChatModel(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case ProviderGemini:
		return NewGeminiChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// NewCompleter returns nil without error in offline mode; responders treat a
// nil Completer as "service unavailable" and answer with their fallback.
func NewCompleter(ctx context.Context, cfg model.CompletionConfig) (model.Completer, error) {
	if cfg.Offline {
		logx.Info().Msg("Offline mode: completion service disabled")
		return nil, nil
	}
	chat, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOllama
	}
	logx.Debug().Str("provider", provider).Str("model", cfg.Model).Msg("Completion service configured")
	return NewChatCompleter(chat, provider, cfg.Model), nil
}
