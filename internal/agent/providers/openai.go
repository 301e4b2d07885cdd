package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIChatModel adapts the openai-go client to eino's BaseChatModel. BaseURL
// may point at any OpenAI-compatible server.
type OpenAIChatModel struct {
	client      openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIChatModel(apiKey, baseURL, modelName string, temperature float32, maxTokens int, extra ...option.RequestOption) (*OpenAIChatModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("openai model name is empty")
	}
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	return &OpenAIChatModel{
		client:      openai.NewClient(opts...),
		model:       modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (o *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	options := einomodel.GetCommonOptions(&einomodel.Options{
		Temperature: &o.temperature,
		MaxTokens:   &o.maxTokens,
		Model:       &o.model,
	}, opts...)
	conf := &einomodel.Config{
		Model:       derefOr(options.Model, o.model),
		MaxTokens:   derefOr(options.MaxTokens, o.maxTokens),
		Temperature: derefOr(options.Temperature, o.temperature),
	}

	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{Messages: input, Config: conf})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			messages = append(messages, openai.SystemMessage(m.Content))
		case schema.Assistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(conf.Model),
		Messages:    messages,
		Temperature: openai.Float(float64(conf.Temperature)),
	}
	if conf.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(conf.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	usage := &schema.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	out = schema.AssistantMessage(resp.Choices[0].Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{FinishReason: resp.Choices[0].FinishReason, Usage: usage}

	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		Config:  conf,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

func (o *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := o.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (o *OpenAIChatModel) GetType() string {
	return "OpenAI"
}

func (o *OpenAIChatModel) IsCallbacksEnabled() bool {
	return true
}

var _ einomodel.BaseChatModel = (*OpenAIChatModel)(nil)

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
