package prompts

import (
	"fmt"
	"strings"

	"github.com/maya-companion/server/internal/agent/model"
)

const (
	DefaultAssistantName = "MAYA"
	DefaultChildAge      = 10

	maxGreetingTopicLen = 60
)

// GreetingInput selects and fills a greeting template.
type GreetingInput struct {
	Language      model.Language
	AssistantName string
	UserName      string
	SessionCount  int
	LastTopic     string // empty on a first visit
}

// Returning reports whether the greeting should welcome the user back.
func (in GreetingInput) Returning() bool {
	return in.SessionCount > 1 && strings.TrimSpace(in.LastTopic) != ""
}

// GreetingReply returns the canned greeting for in.Language, English when unknown.
func GreetingReply(in GreetingInput) string {
	name := userName(in.UserName)
	assistant := in.AssistantName
	if strings.TrimSpace(assistant) == "" {
		assistant = DefaultAssistantName
	}

	if in.Returning() {
		topic := Truncate(strings.TrimSpace(in.LastTopic), maxGreetingTopicLen)
		switch in.Language {
		case model.LanguageHindi:
			return fmt.Sprintf("Wapas aa gayi %s! Kitna accha laga (session %d)!\n"+
				"Pichhli baar tumne poochha tha: %q.\n"+
				"Aaj kya seekhna chahti ho?", name, in.SessionCount, topic)
		case model.LanguageHinglish:
			return fmt.Sprintf("Welcome back %s! Bahut accha laga (session %d)!\n"+
				"Last time tumne pucha tha: %q.\n"+
				"Aaj kya explore karna hai?", name, in.SessionCount, topic)
		default:
			return fmt.Sprintf("Welcome back, %s! Great to see you again (session %d)!\n"+
				"Last time you asked about: %q.\n"+
				"What shall we explore today?", name, in.SessionCount, topic)
		}
	}

	switch in.Language {
	case model.LanguageHindi:
		return fmt.Sprintf("Namaste! Main %s hun, aapka bilingual STEM saathi!\n"+
			"Main aapko Science, Technology, Engineering aur Math mein help kar sakti hun.\n"+
			"Aaj kya seekhna chahte hain?", assistant)
	case model.LanguageHinglish:
		return fmt.Sprintf("Hello! Main %s hun, tumhara bilingual STEM companion!\n"+
			"Science, Math, Technology, sab mein main help karungi!\n"+
			"Kya seekhna chahte ho aaj?", assistant)
	default:
		return fmt.Sprintf("Hello! I'm %s, your bilingual STEM companion!\n"+
			"I can help you explore Science, Technology, Engineering and Math.\n"+
			"What would you like to learn today?", assistant)
	}
}

// FarewellReply includes the number of user turns in the conversation.
func FarewellReply(lang model.Language, turns int) string {
	switch lang {
	case model.LanguageHindi:
		return fmt.Sprintf("Alvida! Aaj aapse baat karke bahut accha laga (%d turns).\n"+
			"Jab bhi kuch seekhna ho, wapas aana! Phir milenge!", turns)
	case model.LanguageHinglish:
		return fmt.Sprintf("Goodbye! Aaj bahut maza aaya tumse baat karke (%d turns).\n"+
			"Kuch bhi seekhna ho toh wapas aana! Phir milenge!", turns)
	default:
		return fmt.Sprintf("Goodbye! It was wonderful talking with you today (%d turns).\n"+
			"Come back whenever you want to learn something new! See you soon!", turns)
	}
}

// FailureCause names why a completion-backed reply could not be produced.
type FailureCause int

const (
	CauseUnknown FailureCause = iota
	CauseTimeout
	CauseUnreachable
	CauseOffline
	CauseMalformed
)

func (c FailureCause) String() string {
	switch c {
	case CauseTimeout:
		return "timeout"
	case CauseUnreachable:
		return "unreachable"
	case CauseOffline:
		return "offline"
	case CauseMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

func (c FailureCause) hint() string {
	switch c {
	case CauseTimeout:
		return "My thinking took too long and timed out."
	case CauseUnreachable:
		return "I couldn't reach my thinking engine. Is the model server running?"
	case CauseOffline:
		return "I'm in offline mode right now, so I can only say hello and goodbye."
	case CauseMalformed:
		return "My answer came out jumbled."
	default:
		return "Something went wrong on my side."
	}
}

// HelpApology is the in-character fallback for the general-help generator.
func HelpApology(cause FailureCause) string {
	return "Hmm, I'm having a little trouble thinking right now! " + cause.hint() + " Can you ask me again in a moment?"
}

// MathApology is the in-character fallback for the math-tutor generator.
func MathApology(cause FailureCause) string {
	return "Hmm, my math brain isn't working right now! " + cause.hint() + " Let's try that problem again soon!"
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
