package model

import (
	"fmt"
	"slices"
	"strings"
)

// Language is the label written by the language stage.
type Language string

const (
	LanguageUnset    Language = ""
	LanguageEnglish  Language = "english"
	LanguageHindi    Language = "hindi"
	LanguageHinglish Language = "hinglish"
)

// Intent is the label written by the intent stage.
type Intent string

const (
	IntentUnset    Intent = ""
	IntentGreeting Intent = "greeting"
	IntentFarewell Intent = "farewell"
	IntentMath     Intent = "math"
	IntentQuestion Intent = "question"
	IntentGeneral  Intent = "general"
)

// Role identifies the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role history entry.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role history entry.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// TurnState is the record threaded through every stage of one pipeline invocation.
//
// Merge model:
//   - Stages never mutate a TurnState directly. They return a TurnUpdate, and the
//     pipeline folds it in with Apply.
//   - MessageHistory and Steps use the APPEND strategy: deltas are concatenated
//     onto the existing sequence.
//   - Every other field uses the REPLACE strategy, restricted to a single writer:
//     Language, Intent, Response and the memory fields keep the first value they
//     receive, so anything the caller sets survives the memory stage.
//   - Within the graph the merged TurnState lives in eino graph-local state and is
//     only touched inside compose.ProcessState / state handlers.
type TurnState struct {
	UserInput string `json:"user_input"`

	Language Language `json:"language"`
	Intent   Intent   `json:"intent"`
	Response string   `json:"response"`

	MessageHistory []Message `json:"message_history"` // append-merged
	Steps          []string  `json:"steps"`           // append-merged, diagnostic only

	// Populated by the memory stage unless the caller already set them; see the
	// accessors below for defaults.
	UserName     Optional[string]   `json:"-"`
	SessionCount Optional[int]      `json:"-"`
	RecentTopics Optional[[]string] `json:"-"`
	SessionID    Optional[int]      `json:"-"`
	MemoryDBPath Optional[string]   `json:"-"`
}

// NewTurn builds the initial state for one invocation: the caller's history with
// the new user utterance already appended.
func NewTurn(userInput string, history []Message) TurnState {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, UserMessage(userInput))
	return TurnState{
		UserInput:      userInput,
		MessageHistory: msgs,
		Steps:          []string{},
	}
}

// Name returns the user's name, defaulting to DefaultUserName.
func (s TurnState) Name() string {
	return s.UserName.OrElse(DefaultUserName)
}

// Sessions returns the stored session count, defaulting to 0.
func (s TurnState) Sessions() int {
	return s.SessionCount.OrElse(0)
}

// Topics returns the recent topics, most recent first. Defaults to empty.
func (s TurnState) Topics() []string {
	return s.RecentTopics.OrElse(nil)
}

// Session returns the session id this turn belongs to, defaulting to 0.
func (s TurnState) Session() int {
	return s.SessionID.OrElse(0)
}

// UserTurns counts the user-role entries in the history.
func (s TurnState) UserTurns() int {
	n := 0
	for _, m := range s.MessageHistory {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// Validate reports malformed initial states. These are programming defects, not
// runtime failures, and the pipeline refuses to run them.
func (s TurnState) Validate() error {
	for i, m := range s.MessageHistory {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("message_history[%d]: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots handed to stages cannot alias graph state.
func (s TurnState) Clone() TurnState {
	out := s
	out.MessageHistory = append([]Message(nil), s.MessageHistory...)
	out.Steps = append([]string(nil), s.Steps...)
	if topics, ok := s.RecentTopics.Get(); ok {
		out.RecentTopics = Some(append([]string(nil), topics...))
	}
	return out
}

// TurnUpdate is the partial delta a stage produces.
type TurnUpdate struct {
	Language Language
	Intent   Intent
	Response string

	UserName     Optional[string]
	SessionCount Optional[int]
	RecentTopics Optional[[]string]

	MessageHistory []Message
	Steps          []string
}

// Step formats a trace entry the same way for every stage.
func Step(node, format string, args ...any) string {
	return fmt.Sprintf("[%s] -> %s", node, fmt.Sprintf(format, args...))
}

// Apply merges u into s: single-writer replace for scalar and optional fields,
// append for MessageHistory and Steps. A conflicting write is dropped and noted
// as a [merge] step.
func (s *TurnState) Apply(u TurnUpdate) {
	var notes []string

	if u.Language != LanguageUnset {
		if s.Language == LanguageUnset {
			s.Language = u.Language
		} else if s.Language != u.Language {
			notes = append(notes, fmt.Sprintf("language already %q, ignored %q", s.Language, u.Language))
		}
	}
	if u.Intent != IntentUnset {
		if s.Intent == IntentUnset {
			s.Intent = u.Intent
		} else if s.Intent != u.Intent {
			notes = append(notes, fmt.Sprintf("intent already %q, ignored %q", s.Intent, u.Intent))
		}
	}
	if strings.TrimSpace(u.Response) != "" {
		if s.Response == "" {
			s.Response = u.Response
		} else if s.Response != u.Response {
			notes = append(notes, "response already written, ignored second write")
		}
	}

	if name, ok := u.UserName.Get(); ok {
		if cur, set := s.UserName.Get(); !set {
			s.UserName = u.UserName
		} else if cur != name {
			notes = append(notes, fmt.Sprintf("user_name already %q, ignored %q", cur, name))
		}
	}
	if n, ok := u.SessionCount.Get(); ok {
		if cur, set := s.SessionCount.Get(); !set {
			s.SessionCount = u.SessionCount
		} else if cur != n {
			notes = append(notes, fmt.Sprintf("session_count already %d, ignored %d", cur, n))
		}
	}
	if topics, ok := u.RecentTopics.Get(); ok {
		if cur, set := s.RecentTopics.Get(); !set {
			s.RecentTopics = Some(append([]string(nil), topics...))
		} else if !slices.Equal(cur, topics) {
			notes = append(notes, fmt.Sprintf("recent_topics already has %d, ignored %d", len(cur), len(topics)))
		}
	}

	s.MessageHistory = append(s.MessageHistory, u.MessageHistory...)
	s.Steps = append(s.Steps, u.Steps...)
	for _, n := range notes {
		s.Steps = append(s.Steps, Step("merge", "%s", n))
	}
}
