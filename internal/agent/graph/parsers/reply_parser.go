package parsers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	errx "github.com/maya-companion/server/internal/core/error"
	logx "github.com/maya-companion/server/pkg/logger"
)

// basic safety limits to avoid pathological completions
const (
	maxContentLen = 128 * 1024 // 128KB raw
	maxReplyLen   = 2000       // runes kept after cleanup
	maxErrSnippet = 200
)

var (
	// reasoning models wrap their scratchpad in <think> tags
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkOpen  = regexp.MustCompile(`(?i)<think>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// CleanReply turns raw completion output into reply text. An empty result is
// reported as errx.ErrEmptyCompletion so callers fall back like any other failure.
func CleanReply(content string) (reply string, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "reply_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("reply parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			reply = ""
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "reply_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		logx.Warn().
			Str("component", "reply_parser").
			Str("snippet", safeSnippet(content)).
			Msg("invalid utf8 dropped from reply")
		content = strings.ToValidUTF8(content, "")
	}

	content = thinkBlock.ReplaceAllString(content, "")
	if loc := thinkOpen.FindStringIndex(content); loc != nil {
		// truncated reasoning never reached its answer
		content = content[:loc[0]]
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	if content == "" {
		return "", errx.ErrEmptyCompletion
	}

	if utf8.RuneCountInString(content) > maxReplyLen {
		r := []rune(content)
		content = strings.TrimSpace(string(r[:maxReplyLen]))
	}
	return content, nil
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
