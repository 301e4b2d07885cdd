package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/maya-companion/server/internal/agent/model"
)

//go:embed template/help_prompt.txt
var helpSystemPrompt string

//go:embed template/math_prompt.txt
var mathSystemPrompt string

const (
	maxContextTopics   = 2
	maxContextTopicLen = 40
)

// Small local models drift into the wrong language unless told explicitly every turn.
var helpLanguageInstructions = map[model.Language]string{
	model.LanguageEnglish:  "CRITICAL: You MUST respond in English only. Do not use any Hindi or Urdu words.",
	model.LanguageHindi:    "CRITICAL: You MUST respond in Hinglish (Roman script Hindi mixed with English). Do not use Devanagari script.",
	model.LanguageHinglish: "CRITICAL: You MUST respond in Hinglish, a natural mix of Hindi (Roman script) and English, like: 'Waah, bahut accha question hai! Gravity is the force...'",
}

var mathLanguageInstructions = map[model.Language]string{
	model.LanguageEnglish:  "CRITICAL: Respond in English only.",
	model.LanguageHindi:    "CRITICAL: Respond in Hinglish (Roman script Hindi + English). Show math steps in English numbers.",
	model.LanguageHinglish: "CRITICAL: Respond in Hinglish, mixing Hindi (Roman script) and English naturally. Math steps in English.",
}

// SystemPromptInput carries the per-turn values substituted into a system prompt.
type SystemPromptInput struct {
	UserName string
	Language model.Language
	Topics   []string // most recent first; only the help prompt uses them
}

// RenderHelpSystem renders the general-help system prompt and triggers prompt callbacks.
func RenderHelpSystem(ctx context.Context, cfg model.PromptConfig, in SystemPromptInput) (string, error) {
	return render(ctx, helpSystemPrompt, map[string]any{
		"AssistantName":       assistantName(cfg),
		"UserName":            userName(in.UserName),
		"ChildAge":            childAge(cfg),
		"LanguageInstruction": languageInstruction(helpLanguageInstructions, in.Language),
		"Topics":              TopicContext(in.Topics),
	})
}

// RenderMathSystem renders the math-tutor system prompt.
func RenderMathSystem(ctx context.Context, cfg model.PromptConfig, in SystemPromptInput) (string, error) {
	return render(ctx, mathSystemPrompt, map[string]any{
		"AssistantName":       assistantName(cfg),
		"UserName":            userName(in.UserName),
		"ChildAge":            childAge(cfg),
		"LanguageInstruction": languageInstruction(mathLanguageInstructions, in.Language),
	})
}

// TopicContext quotes up to two recent topics, each cut to 40 characters.
func TopicContext(topics []string) string {
	if len(topics) > maxContextTopics {
		topics = topics[:maxContextTopics]
	}
	quoted := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("%q", Truncate(t, maxContextTopicLen)))
	}
	return strings.Join(quoted, ", ")
}

func render(ctx context.Context, tplText string, vars map[string]any) (string, error) {
	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tplText),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

func languageInstruction(table map[model.Language]string, lang model.Language) string {
	if s, ok := table[lang]; ok {
		return s
	}
	return table[model.LanguageEnglish]
}

func assistantName(cfg model.PromptConfig) string {
	if strings.TrimSpace(cfg.AssistantName) == "" {
		return DefaultAssistantName
	}
	return cfg.AssistantName
}

func childAge(cfg model.PromptConfig) int {
	if cfg.ChildAge <= 0 {
		return DefaultChildAge
	}
	return cfg.ChildAge
}

func userName(name string) string {
	if strings.TrimSpace(name) == "" {
		return model.DefaultUserName
	}
	return name
}
