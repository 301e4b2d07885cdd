package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maya-companion/server/internal/agent/model"
)

func TestRenderHelpSystem_LanguageInstruction(t *testing.T) {
	ctx := context.Background()
	cfg := model.PromptConfig{AssistantName: "MAYA", ChildAge: 10}

	en, err := RenderHelpSystem(ctx, cfg, SystemPromptInput{UserName: "Srinika", Language: model.LanguageEnglish})
	require.NoError(t, err)
	assert.Contains(t, en, "You are MAYA")
	assert.Contains(t, en, "10-year-old")
	assert.Contains(t, en, "respond in English only")
	assert.NotContains(t, en, "Context:")

	hi, err := RenderHelpSystem(ctx, cfg, SystemPromptInput{Language: model.LanguageHindi})
	require.NoError(t, err)
	assert.Contains(t, hi, "Do not use Devanagari script")
	assert.Contains(t, hi, model.DefaultUserName)

	unknown, err := RenderHelpSystem(ctx, cfg, SystemPromptInput{Language: model.Language("klingon")})
	require.NoError(t, err)
	assert.Contains(t, unknown, "respond in English only")
}

func TestRenderHelpSystem_TopicContext(t *testing.T) {
	out, err := RenderHelpSystem(context.Background(), model.PromptConfig{}, SystemPromptInput{
		Language: model.LanguageEnglish,
		Topics: []string{
			"why is the sky blue and not green or purple at noon",
			"photosynthesis",
			"volcanoes",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Context:")
	assert.Contains(t, out, `"why is the sky blue and not green or pur"`)
	assert.Contains(t, out, `"photosynthesis"`)
	assert.NotContains(t, out, "volcanoes")
	assert.Contains(t, out, "You are "+DefaultAssistantName)
}

func TestRenderMathSystem(t *testing.T) {
	out, err := RenderMathSystem(context.Background(), model.PromptConfig{}, SystemPromptInput{Language: model.LanguageHinglish})
	require.NoError(t, err)
	assert.Contains(t, out, "Math Tutor mode")
	assert.Contains(t, out, "practice problem")
	assert.Contains(t, out, "Math steps in English")
}

func TestGreetingReply(t *testing.T) {
	first := GreetingReply(GreetingInput{Language: model.LanguageEnglish, SessionCount: 1, LastTopic: "stars"})
	assert.Contains(t, first, "I'm MAYA")
	assert.NotContains(t, first, "Welcome back")

	noTopics := GreetingReply(GreetingInput{Language: model.LanguageEnglish, SessionCount: 5})
	assert.NotContains(t, noTopics, "Welcome back")

	long := strings.Repeat("a", 80)
	back := GreetingReply(GreetingInput{Language: model.LanguageEnglish, UserName: "Asha", SessionCount: 4, LastTopic: long})
	assert.Contains(t, back, "Welcome back, Asha")
	assert.Contains(t, back, "session 4")
	assert.Contains(t, back, strings.Repeat("a", 60))
	assert.NotContains(t, back, strings.Repeat("a", 61))

	fallback := GreetingReply(GreetingInput{Language: model.Language("??")})
	assert.Equal(t, GreetingReply(GreetingInput{Language: model.LanguageEnglish}), fallback)

	assert.Contains(t, GreetingReply(GreetingInput{Language: model.LanguageHindi}), "Namaste")
}

func TestFarewellReply(t *testing.T) {
	assert.Contains(t, FarewellReply(model.LanguageEnglish, 2), "2 turns")
	assert.Contains(t, FarewellReply(model.LanguageHindi, 3), "Alvida")
	assert.Equal(t, FarewellReply(model.LanguageEnglish, 7), FarewellReply(model.LanguageUnset, 7))
}

func TestApologies(t *testing.T) {
	assert.Contains(t, HelpApology(CauseTimeout), "timed out")
	assert.Contains(t, MathApology(CauseUnreachable), "model server")
	assert.Contains(t, HelpApology(CauseOffline), "offline")
	assert.NotEmpty(t, MathApology(CauseUnknown))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "नमस्", Truncate("नमस्ते", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}
