package nodes

import (
	"context"
	"strings"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

// maxGreetingTokens keeps "namaste, photosynthesis kya hai aur kaise hota hai?"
// out of the greeting route.
const maxGreetingTokens = 6

// lexicon matches single words by token membership and longer phrases by
// substring, so "hi" never fires inside "hindi".
type lexicon struct {
	words   wordSet
	phrases []string
}

func (l lexicon) match(words wordSet, lowered string) bool {
	for w := range words {
		if l.words.has(w) {
			return true
		}
	}
	for _, p := range l.phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

var (
	farewellLexicon = lexicon{
		words:   newWordSet("bye", "goodbye", "goodnight", "cya", "alvida", "tata", "exit", "quit", "stop", "later"),
		phrases: []string{"good bye", "see you", "phir milenge", "good night", "band karo"},
	}
	greetingLexicon = lexicon{
		words:   newWordSet("hello", "hi", "hey", "namaste", "namaskar", "sup"),
		phrases: []string{"good morning", "good evening"},
	}
	mathLexicon = lexicon{
		words: newWordSet("calculate", "solve", "math", "add", "subtract", "multiply", "divide",
			"plus", "minus", "times", "equals", "+", "-", "*", "/", "sum", "total"),
	}
	questionLexicon = lexicon{
		words: newWordSet("what", "why", "how", "when", "where", "who", "which", "explain",
			"describe", "kya", "kyun", "kaise", "kab", "kahaan", "kaun", "batao", "samjhao"),
		phrases: []string{"tell me"},
	}
)

// ClassifyIntent applies farewell > greeting > math > question > general,
// first match wins. Greeting also requires a short utterance.
func ClassifyIntent(text string) model.Intent {
	lowered := strings.ToLower(text)
	words := tokenSet(lowered)

	switch {
	case farewellLexicon.match(words, lowered):
		return model.IntentFarewell
	case len(strings.Fields(lowered)) <= maxGreetingTokens && greetingLexicon.match(words, lowered):
		return model.IntentGreeting
	case mathLexicon.match(words, lowered):
		return model.IntentMath
	case questionLexicon.match(words, lowered):
		return model.IntentQuestion
	default:
		return model.IntentGeneral
	}
}

// UnderstandIntentStage labels what the user wants.
func UnderstandIntentStage(ctx context.Context, s model.TurnState) model.TurnUpdate {
	intent := ClassifyIntent(s.UserInput)
	logx.Debug().
		Str("node", NodeUnderstandIntent).
		Str("intent", string(intent)).
		Msg("Intent classified")
	return model.TurnUpdate{
		Intent: intent,
		Steps:  []string{model.Step(NodeUnderstandIntent, "'%s'", intent)},
	}
}
