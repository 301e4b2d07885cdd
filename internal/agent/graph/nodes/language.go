package nodes

import (
	"context"
	"strings"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

const tokenCutset = ".,!?;:'\""

// Romanized Hindi words common in a child's Hinglish.
var hindiMarkers = newWordSet(
	"namaste", "namaskar", "kya", "hai", "hain", "nahi", "haan",
	"karo", "kuch", "mujhe", "tumhe", "aap", "tum", "main", "mera",
	"tera", "uska", "bahut", "accha", "theek", "kyun", "kaise",
	"kaun", "kab", "kahaan", "batao", "samjhao", "seekhna", "chahte",
	"alvida", "phir", "milenge", "shukriya", "dhanyavaad",
)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// tokens lowercases text, splits on whitespace and strips surrounding punctuation.
func tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.Trim(f, tokenCutset); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func tokenSet(text string) wordSet {
	return newWordSet(tokens(text)...)
}

// DetectLanguage counts distinct Hindi marker words: two or more is hindi,
// exactly one is hinglish, none is english. A heuristic on marker density,
// not real language identification.
func DetectLanguage(text string) (model.Language, int) {
	n := 0
	for w := range tokenSet(text) {
		if hindiMarkers.has(w) {
			n++
		}
	}
	switch {
	case n >= 2:
		return model.LanguageHindi, n
	case n == 1:
		return model.LanguageHinglish, n
	default:
		return model.LanguageEnglish, n
	}
}

// DetectLanguageStage labels the utterance.
func DetectLanguageStage(ctx context.Context, s model.TurnState) model.TurnUpdate {
	lang, n := DetectLanguage(s.UserInput)
	logx.Debug().
		Str("node", NodeDetectLanguage).
		Str("language", string(lang)).
		Int("markers", n).
		Msg("Language detected")
	return model.TurnUpdate{
		Language: lang,
		Steps:    []string{model.Step(NodeDetectLanguage, "'%s' (%d Hindi marker(s))", lang, n)},
	}
}
