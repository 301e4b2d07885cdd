package observers

import (
	"context"
	"strings"
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

// newModelHandler logs completion calls and their usage cost.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *einomodel.CallbackInput) context.Context {
			ev := logx.Debug().Str("provider", info.Name).Str("type", info.Type)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages))
				if um := lastUserContent(input.Messages); um != "" {
					// the child's words stay out of the logs
					ev = ev.Int("user_len", utf8.RuneCountInString(um))
				}
				if input.Config != nil {
					ev = ev.Str("model", input.Config.Model)
				}
			}
			ev.Msg("Model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *einomodel.CallbackOutput) context.Context {
			ev := logx.Debug().Str("provider", info.Name).Str("type", info.Type)
			if output == nil {
				ev.Msg("Model end")
				return ctx
			}
			if output.Message != nil {
				ev = ev.Int("reply_len", len(strings.TrimSpace(output.Message.Content)))
			}
			if output.TokenUsage != nil {
				modelName := ""
				if output.Config != nil {
					modelName = output.Config.Model
				}
				usage := &schema.TokenUsage{
					PromptTokens:     output.TokenUsage.PromptTokens,
					CompletionTokens: output.TokenUsage.CompletionTokens,
					TotalTokens:      output.TokenUsage.TotalTokens,
				}
				inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
				ev = ev.
					Str("model", modelName).
					Int("prompt_tokens", usage.PromptTokens).
					Int("completion_tokens", usage.CompletionTokens).
					Int("total_tokens", usage.TotalTokens).
					Float64("input_cost_usd", inC).
					Float64("output_cost_usd", outC).
					Float64("total_cost_usd", totalC)
			}
			ev.Msg("LLM usage")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("provider", info.Name).Str("type", info.Type).Msg("Model error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
