package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/eino-contrib/ollama/api"

	logx "github.com/maya-companion/server/pkg/logger"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	defaultHTTPTimeout   = 120 * time.Second
)

// NewOllamaChatModel creates the eino Ollama chat model for a local server.
// A nil httpClient gets a 120s default; the per-call context deadline still wins.
func NewOllamaChatModel(ctx context.Context, baseURL, modelName string, temperature float32, maxTokens int, httpClient *http.Client) (*ollama.ChatModel, error) {
	if strings.TrimSpace(modelName) == "" {
		return nil, fmt.Errorf("ollama requires COMPLETION_MODEL")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Model:      modelName,
		Options: &api.Options{
			Temperature: temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		logx.Error().Err(err).Str("base_url", baseURL).Msg("Error creating Ollama chat model")
		return nil, fmt.Errorf("error creating Ollama chat model: %w", err)
	}
	return cm, nil
}
