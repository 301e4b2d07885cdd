package graph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maya-companion/server/internal/agent/model"
	"github.com/maya-companion/server/internal/agent/repo"
	logx "github.com/maya-companion/server/pkg/logger"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, system string, history []model.Message) (string, error) {
	s.calls++
	return s.reply, s.err
}

type fixture struct {
	runner Runner
	dbPath string
	open   model.MemoryOpener
}

func newFixture(t *testing.T, c model.Completer) fixture {
	t.Helper()
	logx.Silence()

	dbPath := filepath.Join(t.TempDir(), "memory.db")
	open := repo.NewSQLiteMemoryOpener(dbPath, model.DefaultUserName)
	runner, err := BuildPipeline(context.Background(), Config{
		Completer:         c,
		OpenMemory:        open,
		Memory:            model.MemoryConfig{RecentTopics: 3, UserName: model.DefaultUserName},
		Prompt:            model.PromptConfig{AssistantName: "MAYA", ChildAge: 10},
		CompletionTimeout: time.Second,
	})
	require.NoError(t, err)
	return fixture{runner: runner, dbPath: dbPath, open: open}
}

func (f fixture) run(t *testing.T, input string, history ...model.Message) model.TurnState {
	t.Helper()
	in := model.NewTurn(input, history)
	in.MemoryDBPath = model.Some(f.dbPath)
	out, err := f.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	return out
}

func (f fixture) topics(t *testing.T) []string {
	t.Helper()
	store, err := f.open(context.Background(), f.dbPath)
	require.NoError(t, err)
	defer store.Close()
	topics, err := store.GetRecentTopics(context.Background(), 10)
	require.NoError(t, err)
	return topics
}

func TestPipeline_EnglishGreeting(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "unused"})
	out := f.run(t, "Hello MAYA!")

	assert.Equal(t, "Hello MAYA!", out.UserInput)
	assert.Equal(t, model.LanguageEnglish, out.Language)
	assert.Equal(t, model.IntentGreeting, out.Intent)
	assert.NotEmpty(t, out.Response)
	require.Len(t, out.MessageHistory, 2)
	assert.Equal(t, model.AssistantMessage(out.Response), out.MessageHistory[1])

	require.Len(t, out.Steps, 5)
	assert.True(t, strings.HasPrefix(out.Steps[0], "[load_memory]"))
	assert.True(t, strings.HasPrefix(out.Steps[1], "[detect_language]"))
	assert.True(t, strings.HasPrefix(out.Steps[2], "[understand_intent]"))
	assert.True(t, strings.HasPrefix(out.Steps[3], "[greet_response]"))
	assert.Equal(t, "[save_memory] -> logged turn (ok)", out.Steps[4])
}

func TestPipeline_HindiMathRoutesToTutor(t *testing.T) {
	c := &stubCompleter{reply: "5 aur 3 milke 8 hota hai! Ab 6 + 2 batao?"}
	f := newFixture(t, c)
	out := f.run(t, "5 + 3 kya hoga?")

	assert.Equal(t, model.IntentMath, out.Intent)
	assert.Equal(t, model.LanguageHinglish, out.Language)
	assert.Equal(t, c.reply, out.Response)
	assert.Equal(t, 1, c.calls)
	assert.True(t, strings.HasPrefix(out.Steps[3], "[math_tutor_response]"))
}

func TestPipeline_HistoryGrowsByOne(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "Great question!"})

	var history []model.Message
	for _, input := range []string{"hi", "why is the sky blue", "2 plus 2", "", "see you"} {
		before := len(history) + 1
		out := f.run(t, input, history...)
		assert.Len(t, out.MessageHistory, before+1, "input %q", input)
		history = out.MessageHistory
	}
}

func TestPipeline_NonEmptyResponse(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "   "})
	for _, input := range []string{"", "   ", "?!", "hello", "bye", "what", "5*5", "random chatter"} {
		out := f.run(t, input)
		assert.NotEmpty(t, strings.TrimSpace(out.Response), "input %q", input)
		assert.NotEqual(t, model.IntentUnset, out.Intent)
		assert.NotEqual(t, model.LanguageUnset, out.Language)
	}
}

func TestPipeline_FarewellPrecedenceAndTurnCount(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "ok"})
	history := []model.Message{
		model.UserMessage("hi"),
		model.AssistantMessage("hello!"),
	}
	out := f.run(t, "bye hello MAYA", history...)

	assert.Equal(t, model.IntentFarewell, out.Intent)
	assert.Contains(t, out.Response, "2")
	assert.Equal(t, "[save_memory] -> skipped (farewell)", out.Steps[len(out.Steps)-1])
}

func TestPipeline_FarewellDoesNotLogTopic(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "Plants use sunlight."})
	f.run(t, "how do plants eat")
	before := f.topics(t)
	require.Equal(t, []string{"how do plants eat"}, before)

	f.run(t, "goodbye")
	assert.Equal(t, before, f.topics(t))
}

func TestPipeline_GreetingLengthGate(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "Photosynthesis is how plants cook!"})
	out := f.run(t, "hello MAYA can you explain what photosynthesis really is")
	assert.NotEqual(t, model.IntentGreeting, out.Intent)
	assert.Equal(t, model.IntentQuestion, out.Intent)
}

func TestPipeline_CompletionFailureFallsBack(t *testing.T) {
	f := newFixture(t, &stubCompleter{err: errors.New("connection refused")})
	out := f.run(t, "why do stars twinkle")

	assert.Equal(t, model.IntentQuestion, out.Intent)
	assert.NotEmpty(t, out.Response)
	assert.Contains(t, out.Response, "trouble")
	assert.Contains(t, out.Steps[3], "fallback")
	assert.Len(t, out.MessageHistory, 2)
}

func TestPipeline_OfflineMode(t *testing.T) {
	f := newFixture(t, nil)
	out := f.run(t, "what is gravity")
	assert.Contains(t, out.Response, "offline")
}

func TestPipeline_MemoryFailureUsesDefaults(t *testing.T) {
	logx.Silence()
	broken := func(ctx context.Context, location string) (model.MemoryStore, error) {
		return nil, errors.New("database disk image is malformed")
	}
	runner, err := BuildPipeline(context.Background(), Config{
		Completer:  &stubCompleter{reply: "hi"},
		OpenMemory: broken,
	})
	require.NoError(t, err)

	out, err := runner.Invoke(context.Background(), model.NewTurn("hello", nil))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserName, out.Name())
	assert.Equal(t, 0, out.Sessions())
	assert.Empty(t, out.Topics())
	assert.Contains(t, out.Steps[0], "defaults")
	assert.Contains(t, out.Steps[len(out.Steps)-1], "error")
	assert.NotEmpty(t, out.Response)
}

func TestPipeline_ReturningGreetingRecallsTopic(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "Volcanoes are mountains that burp lava!"})
	ctx := context.Background()

	store, err := f.open(ctx, f.dbPath)
	require.NoError(t, err)
	_, err = store.StartSession(ctx)
	require.NoError(t, err)
	session, err := store.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	in := model.NewTurn("tell me about volcanoes", nil)
	in.MemoryDBPath = model.Some(f.dbPath)
	in.SessionID = model.Some(session)
	_, err = f.runner.Invoke(ctx, in)
	require.NoError(t, err)

	out := f.run(t, "hey")
	assert.Equal(t, model.IntentGreeting, out.Intent)
	assert.Contains(t, out.Response, "Welcome back")
	assert.Contains(t, out.Response, "tell me about volcanoes")
	assert.Contains(t, out.Response, "session 2")
}

func TestPipeline_SingleWriter(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "unused"})
	in := model.NewTurn("hello", nil)
	in.MemoryDBPath = model.Some(f.dbPath)
	in.Intent = model.IntentFarewell

	out, err := f.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.IntentFarewell, out.Intent)
	assert.Equal(t, "hello", out.UserInput)
	assert.True(t, containsPrefix(out.Steps, "[merge]"))
}

func TestPipeline_CallerMemoryFieldsSurviveLoad(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "unused"})
	in := model.NewTurn("hello", nil)
	in.MemoryDBPath = model.Some(f.dbPath)
	in.UserName = model.Some("Asha")
	in.SessionCount = model.Some(7)
	in.RecentTopics = model.Some([]string{"volcanoes"})

	out, err := f.runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Asha", out.Name())
	assert.Equal(t, 7, out.Sessions())
	assert.Equal(t, []string{"volcanoes"}, out.Topics())
	assert.Equal(t, model.IntentGreeting, out.Intent)
	assert.Contains(t, out.Response, "Welcome back")
	assert.Contains(t, out.Response, "volcanoes")
	assert.True(t, containsPrefix(out.Steps, "[merge]"))
}

func TestPipeline_RejectsInvalidHistory(t *testing.T) {
	f := newFixture(t, &stubCompleter{reply: "x"})
	in := model.NewTurn("hi", []model.Message{{Role: "robot", Content: "beep"}})
	_, err := f.runner.Invoke(context.Background(), in)
	assert.Error(t, err)
}

func containsPrefix(steps []string, prefix string) bool {
	for _, s := range steps {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
