package nodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maya-companion/server/internal/agent/graph/parsers"
	"github.com/maya-companion/server/internal/agent/graph/prompts"
	"github.com/maya-companion/server/internal/agent/model"
	errx "github.com/maya-companion/server/internal/core/error"
	logx "github.com/maya-companion/server/pkg/logger"
)

const DefaultCompletionTimeout = 60 * time.Second

// reply builds the common generator output: the text, one assistant history
// entry and one trace line.
func reply(node, text, format string, args ...any) model.TurnUpdate {
	return model.TurnUpdate{
		Response:       text,
		MessageHistory: []model.Message{model.AssistantMessage(text)},
		Steps:          []string{model.Step(node, format, args...)},
	}
}

// NewGreetStage welcomes first-time users and recalls the last topic for
// returning ones.
func NewGreetStage(cfg model.PromptConfig) StageFunc {
	return func(ctx context.Context, s model.TurnState) model.TurnUpdate {
		in := prompts.GreetingInput{
			Language:      s.Language,
			AssistantName: cfg.AssistantName,
			UserName:      s.Name(),
			SessionCount:  s.Sessions(),
		}
		if topics := s.Topics(); len(topics) > 0 {
			in.LastTopic = topics[0]
		}

		kind := "first visit"
		if in.Returning() {
			kind = fmt.Sprintf("returning, session %d", in.SessionCount)
		}
		logx.Debug().Str("node", NodeGreetResponse).Str("language", string(s.Language)).Msg("Greeting")
		return reply(NodeGreetResponse, prompts.GreetingReply(in), "greeting in '%s' (%s)", s.Language, kind)
	}
}

// FarewellStage says goodbye and reports how many turns the user took.
func FarewellStage(ctx context.Context, s model.TurnState) model.TurnUpdate {
	turns := s.UserTurns()
	logx.Debug().Str("node", NodeFarewellResponse).Int("turns", turns).Msg("Farewell")
	return reply(NodeFarewellResponse, prompts.FarewellReply(s.Language, turns), "goodbye in '%s' after %d turn(s)", s.Language, turns)
}

// CompletionStageConfig is shared by the completion-backed generators.
type CompletionStageConfig struct {
	Completer model.Completer // nil means offline
	Prompt    model.PromptConfig
	Timeout   time.Duration
}

func (c CompletionStageConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultCompletionTimeout
	}
	return c.Timeout
}

// NewMathTutorStage answers math questions with worked steps.
func NewMathTutorStage(cfg CompletionStageConfig) StageFunc {
	return func(ctx context.Context, s model.TurnState) model.TurnUpdate {
		system, err := prompts.RenderMathSystem(ctx, cfg.Prompt, prompts.SystemPromptInput{
			UserName: s.Name(),
			Language: s.Language,
		})
		text, cause, err := completeOrFallback(ctx, cfg, NodeMathTutorResponse, system, err, s)
		if err != nil {
			return reply(NodeMathTutorResponse, prompts.MathApology(cause), "language='%s' (fallback: %s)", s.Language, cause)
		}
		return reply(NodeMathTutorResponse, text, "language='%s'", s.Language)
	}
}

// NewHelpStage handles questions and general chat, with recent topics as context.
func NewHelpStage(cfg CompletionStageConfig) StageFunc {
	return func(ctx context.Context, s model.TurnState) model.TurnUpdate {
		system, err := prompts.RenderHelpSystem(ctx, cfg.Prompt, prompts.SystemPromptInput{
			UserName: s.Name(),
			Language: s.Language,
			Topics:   s.Topics(),
		})
		text, cause, err := completeOrFallback(ctx, cfg, NodeHelpResponse, system, err, s)
		if err != nil {
			return reply(NodeHelpResponse, prompts.HelpApology(cause), "intent='%s', language='%s' (fallback: %s)", s.Intent, s.Language, cause)
		}
		return reply(NodeHelpResponse, text, "intent='%s', language='%s'", s.Intent, s.Language)
	}
}

// completeOrFallback runs one bounded completion call. Every failure comes
// back as an error plus the cause to name in the apology; nothing escapes.
func completeOrFallback(ctx context.Context, cfg CompletionStageConfig, node, system string, renderErr error, s model.TurnState) (string, prompts.FailureCause, error) {
	if renderErr != nil {
		logx.Error().Err(renderErr).Str("node", node).Msg("Error rendering system prompt")
		return "", prompts.CauseUnknown, renderErr
	}
	if cfg.Completer == nil {
		logx.Debug().Str("node", node).Msg("No completion service; using fallback")
		return "", prompts.CauseOffline, errx.ErrCompletionUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	start := time.Now()
	raw, err := cfg.Completer.Complete(callCtx, system, withUserTurn(s))
	if err == nil {
		raw, err = parsers.CleanReply(raw)
	}
	if err != nil {
		wrapped := errx.WrapCompletion(err)
		cause := causeOf(wrapped)
		logx.Warn().
			Err(wrapped).
			Str("node", node).
			Str("cause", cause.String()).
			Dur("elapsed", time.Since(start)).
			Msg("Completion failed; using fallback")
		return "", cause, wrapped
	}

	logx.Debug().
		Str("node", node).
		Str("language", string(s.Language)).
		Dur("elapsed", time.Since(start)).
		Msg("Completion ready")
	return raw, prompts.CauseUnknown, nil
}

func causeOf(err error) prompts.FailureCause {
	switch errx.StatusOf(err) {
	case http.StatusGatewayTimeout:
		return prompts.CauseTimeout
	case http.StatusServiceUnavailable:
		return prompts.CauseOffline
	case http.StatusUnprocessableEntity:
		return prompts.CauseMalformed
	}
	if errors.Is(err, context.Canceled) {
		return prompts.CauseUnknown
	}
	return prompts.CauseUnreachable
}

// withUserTurn returns the history to send, appending the current utterance
// when the caller did not already do so.
func withUserTurn(s model.TurnState) []model.Message {
	history := append([]model.Message(nil), s.MessageHistory...)
	if len(history) == 0 || history[len(history)-1].Role != model.RoleUser {
		history = append(history, model.UserMessage(s.UserInput))
	}
	return history
}
