package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/maya-companion/server/internal/agent/model"
	errx "github.com/maya-companion/server/internal/core/error"
)

// ChatCompleter exposes any eino chat model as a model.Completer.
type ChatCompleter struct {
	chat  einomodel.BaseChatModel
	name  string
	model string
}

func NewChatCompleter(chat einomodel.BaseChatModel, provider, modelName string) *ChatCompleter {
	return &ChatCompleter{chat: chat, name: provider, model: modelName}
}

// ModelName is the configured model id, used for cost lookups.
func (c *ChatCompleter) ModelName() string {
	return c.model
}

func (c *ChatCompleter) Complete(ctx context.Context, system string, history []model.Message) (string, error) {
	if c == nil || c.chat == nil {
		return "", errx.ErrCompletionUnavailable
	}

	msgs := make([]*schema.Message, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case model.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}

	// Called from inside lambda nodes: re-tag the run info so chat-model
	// handlers see this call as a model invocation.
	typ, _ := components.GetType(c.chat)
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      c.name,
		Type:      typ,
		Component: components.ComponentOfChatModel,
	})

	out, err := c.chat.Generate(ctx, msgs, einomodel.WithModel(c.model))
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", c.name, err)
	}
	if out == nil {
		return "", errx.ErrEmptyCompletion
	}
	return out.Content, nil
}

var _ model.Completer = (*ChatCompleter)(nil)
