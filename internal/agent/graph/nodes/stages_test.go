package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maya-companion/server/internal/agent/model"
)

type fakeCompleter struct {
	reply   string
	err     error
	delay   time.Duration
	system  string
	history []model.Message
	calls   int
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, history []model.Message) (string, error) {
	f.calls++
	f.system = system
	f.history = history
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

type fakeStore struct {
	profile model.Profile
	topics  []string
	logged  []model.TopicEntry
	failOn  string
	closed  int
}

func (f *fakeStore) GetProfile(ctx context.Context) (model.Profile, error) {
	if f.failOn == "profile" {
		return model.Profile{}, errors.New("disk on fire")
	}
	return f.profile, nil
}

func (f *fakeStore) StartSession(ctx context.Context) (int, error) {
	f.profile.SessionCount++
	return f.profile.SessionCount, nil
}

func (f *fakeStore) GetRecentTopics(ctx context.Context, limit int) ([]string, error) {
	if f.failOn == "topics" {
		return nil, errors.New("corrupt")
	}
	if limit < len(f.topics) {
		return f.topics[:limit], nil
	}
	return f.topics, nil
}

func (f *fakeStore) LogTurn(ctx context.Context, message string, intent model.Intent, sessionID int) error {
	if f.failOn == "log" {
		return errors.New("read-only")
	}
	f.logged = append(f.logged, model.TopicEntry{SessionID: sessionID, Message: message, Intent: intent})
	f.profile.TotalTurns++
	return nil
}

func (f *fakeStore) Close() error {
	f.closed++
	return nil
}

func openerFor(store *fakeStore, seen *string) model.MemoryOpener {
	return func(ctx context.Context, location string) (model.MemoryStore, error) {
		if seen != nil {
			*seen = location
		}
		return store, nil
	}
}

func turn(input string, lang model.Language, intent model.Intent) model.TurnState {
	s := model.NewTurn(input, nil)
	s.Language = lang
	s.Intent = intent
	return s
}

func TestLoadMemoryStage(t *testing.T) {
	store := &fakeStore{
		profile: model.Profile{UserName: "Asha", SessionCount: 3},
		topics:  []string{"a", "b", "c", "d"},
	}
	var location string
	stage := NewLoadMemoryStage(openerFor(store, &location), 3, "Srinika")

	s := model.NewTurn("hi", nil)
	s.MemoryDBPath = model.Some("/tmp/x.db")
	u := stage(context.Background(), s)

	assert.Equal(t, "/tmp/x.db", location)
	assert.Equal(t, "Asha", u.UserName.OrElse(""))
	assert.Equal(t, 3, u.SessionCount.OrElse(-1))
	assert.Equal(t, []string{"a", "b", "c"}, u.RecentTopics.OrElse(nil))
	assert.Equal(t, 1, store.closed)
	require.Len(t, u.Steps, 1)
	assert.Equal(t, "[load_memory] -> session_count=3, 3 recent topic(s)", u.Steps[0])
}

func TestLoadMemoryStage_Defaults(t *testing.T) {
	failing := func(ctx context.Context, location string) (model.MemoryStore, error) {
		return nil, errors.New("file is not a database")
	}
	for name, open := range map[string]model.MemoryOpener{
		"open fails":   failing,
		"read fails":   openerFor(&fakeStore{failOn: "topics", profile: model.Profile{SessionCount: 9}}, nil),
		"no opener":    nil,
		"profile fail": openerFor(&fakeStore{failOn: "profile"}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			u := NewLoadMemoryStage(open, 3, "Srinika")(context.Background(), model.NewTurn("hi", nil))
			assert.Equal(t, "Srinika", u.UserName.OrElse(""))
			assert.Equal(t, 0, u.SessionCount.OrElse(-1))
			assert.Empty(t, u.RecentTopics.OrElse([]string{"x"}))
			require.Len(t, u.Steps, 1)
			assert.Contains(t, u.Steps[0], "defaults")
		})
	}
}

func TestSaveMemoryStage(t *testing.T) {
	store := &fakeStore{}
	stage := NewSaveMemoryStage(openerFor(store, nil))

	s := turn("why is the sky blue", model.LanguageEnglish, model.IntentQuestion)
	s.SessionID = model.Some(4)
	u := stage(context.Background(), s)

	require.Len(t, store.logged, 1)
	assert.Equal(t, "why is the sky blue", store.logged[0].Message)
	assert.Equal(t, model.IntentQuestion, store.logged[0].Intent)
	assert.Equal(t, 4, store.logged[0].SessionID)
	assert.Equal(t, []string{"[save_memory] -> logged turn (ok)"}, u.Steps)
	assert.Empty(t, u.Response)
}

func TestSaveMemoryStage_SkipsFarewell(t *testing.T) {
	store := &fakeStore{}
	u := NewSaveMemoryStage(openerFor(store, nil))(context.Background(), turn("bye", model.LanguageEnglish, model.IntentFarewell))

	assert.Empty(t, store.logged)
	assert.Zero(t, store.closed)
	assert.Equal(t, []string{"[save_memory] -> skipped (farewell)"}, u.Steps)
}

func TestSaveMemoryStage_ErrorIsTraced(t *testing.T) {
	u := NewSaveMemoryStage(openerFor(&fakeStore{failOn: "log"}, nil))(context.Background(), turn("hmm", model.LanguageEnglish, model.IntentGeneral))
	require.Len(t, u.Steps, 1)
	assert.Contains(t, u.Steps[0], "logged turn (error:")
	assert.Contains(t, u.Steps[0], "read-only")
	assert.Empty(t, u.Response)
}

func TestGreetStage(t *testing.T) {
	stage := NewGreetStage(model.PromptConfig{AssistantName: "MAYA"})

	first := turn("hello", model.LanguageEnglish, model.IntentGreeting)
	first.SessionCount = model.Some(1)
	first.RecentTopics = model.Some([]string{"stars"})
	u := stage(context.Background(), first)
	assert.Contains(t, u.Response, "I'm MAYA")
	require.Len(t, u.MessageHistory, 1)
	assert.Equal(t, model.AssistantMessage(u.Response), u.MessageHistory[0])

	back := turn("hello", model.LanguageHinglish, model.IntentGreeting)
	back.SessionCount = model.Some(5)
	back.RecentTopics = model.Some([]string{strings.Repeat("x", 70), "older"})
	u = stage(context.Background(), back)
	assert.Contains(t, u.Response, "Welcome back")
	assert.Contains(t, u.Response, "session 5")
	assert.Contains(t, u.Response, strings.Repeat("x", 60))
	assert.NotContains(t, u.Response, strings.Repeat("x", 61))
	assert.Contains(t, u.Steps[0], "returning, session 5")
}

func TestFarewellStage_CountsUserTurns(t *testing.T) {
	history := []model.Message{
		model.UserMessage("hi"),
		model.AssistantMessage("hello!"),
	}
	s := model.NewTurn("bye", history)
	s.Language = model.LanguageEnglish
	u := FarewellStage(context.Background(), s)
	assert.Contains(t, u.Response, "2 turns")
	require.Len(t, u.MessageHistory, 1)
}

func TestHelpStage(t *testing.T) {
	fc := &fakeCompleter{reply: "  Plants make food from sunlight! What else grows?  "}
	stage := NewHelpStage(CompletionStageConfig{Completer: fc, Timeout: time.Second})

	s := turn("how do plants eat", model.LanguageEnglish, model.IntentQuestion)
	s.RecentTopics = model.Some([]string{"volcanoes", "stars", "rain"})
	u := stage(context.Background(), s)

	assert.Equal(t, "Plants make food from sunlight! What else grows?", u.Response)
	assert.Equal(t, []model.Message{model.AssistantMessage(u.Response)}, u.MessageHistory)
	assert.Contains(t, fc.system, `"volcanoes", "stars"`)
	assert.NotContains(t, fc.system, "rain")
	assert.Equal(t, []model.Message{model.UserMessage("how do plants eat")}, fc.history)
	assert.Equal(t, []string{"[help_response] -> intent='question', language='english'"}, u.Steps)
}

func TestHelpStage_AppendsMissingUserTurn(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	s := model.TurnState{UserInput: "what is rain", Language: model.LanguageEnglish, Intent: model.IntentQuestion}
	NewHelpStage(CompletionStageConfig{Completer: fc})(context.Background(), s)
	assert.Equal(t, []model.Message{model.UserMessage("what is rain")}, fc.history)
}

func TestCompletionStages_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		c       model.Completer
		timeout time.Duration
		cause   string
	}{
		{"error", &fakeCompleter{err: errors.New("connection refused")}, time.Second, "unreachable"},
		{"timeout", &fakeCompleter{reply: "late", delay: time.Second}, 20 * time.Millisecond, "timeout"},
		{"empty", &fakeCompleter{reply: "   "}, time.Second, "malformed"},
		{"offline", nil, time.Second, "offline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CompletionStageConfig{Completer: tt.c, Timeout: tt.timeout}

			help := NewHelpStage(cfg)(context.Background(), turn("why", model.LanguageEnglish, model.IntentQuestion))
			assert.Contains(t, help.Response, "trouble thinking")
			assert.Contains(t, help.Steps[0], "fallback: "+tt.cause)
			require.Len(t, help.MessageHistory, 1)

			math := NewMathTutorStage(cfg)(context.Background(), turn("2+2", model.LanguageHindi, model.IntentMath))
			assert.Contains(t, math.Response, "math brain")
			assert.Contains(t, math.Steps[0], "fallback: "+tt.cause)
		})
	}
}

func TestMathTutorStage_UsesMathPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "Step 1: 5 + 3 = 8. Try 6 + 2!"}
	u := NewMathTutorStage(CompletionStageConfig{Completer: fc})(context.Background(), turn("5 + 3 kya hoga?", model.LanguageHinglish, model.IntentMath))
	assert.Contains(t, fc.system, "Math Tutor mode")
	assert.Equal(t, "Step 1: 5 + 3 = 8. Try 6 + 2!", u.Response)
	assert.Equal(t, []string{"[math_tutor_response] -> language='hinglish'"}, u.Steps)
}
