package conversations

import (
	"sync"

	"github.com/maya-companion/server/internal/agent/model"
)

// MessagesManager carries the conversation history between pipeline
// invocations. The pipeline itself is stateless across turns; the caller
// builds each turn from here and commits the result back.
type MessagesManager struct {
	mu        sync.Mutex
	messages  []model.Message
	sessionID int
	location  string
}

// NewMessagesManager starts an empty conversation for sessionID. location is
// the optional memory store override passed on every turn.
func NewMessagesManager(sessionID int, location string) *MessagesManager {
	return &MessagesManager{sessionID: sessionID, location: location}
}

// Begin builds the initial state for the next turn: history so far plus the
// new user utterance.
func (mm *MessagesManager) Begin(userInput string) model.TurnState {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	in := model.NewTurn(userInput, mm.messages)
	if mm.sessionID > 0 {
		in.SessionID = model.Some(mm.sessionID)
	}
	if mm.location != "" {
		in.MemoryDBPath = model.Some(mm.location)
	}
	return in
}

// Commit adopts the history returned by the pipeline.
func (mm *MessagesManager) Commit(out model.TurnState) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.messages = append([]model.Message(nil), out.MessageHistory...)
}

// Clear forgets the conversation but keeps the session.
func (mm *MessagesManager) Clear() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.messages = nil
}

// Messages returns a copy of the full history.
func (mm *MessagesManager) Messages() []model.Message {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return trimTail(mm.messages, len(mm.messages))
}

// Tail returns a copy of at most the last n messages.
func (mm *MessagesManager) Tail(n int) []model.Message {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return trimTail(mm.messages, n)
}

// Turns counts user messages so far.
func (mm *MessagesManager) Turns() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	n := 0
	for _, m := range mm.messages {
		if m.Role == model.RoleUser {
			n++
		}
	}
	return n
}

// SessionID is the id this conversation logs its turns under.
func (mm *MessagesManager) SessionID() int {
	return mm.sessionID
}

// ====================== Helper function ======================
func trimTail(messages []model.Message, maxTurns int) []model.Message {
	if maxTurns < 0 {
		maxTurns = 0
	}
	if len(messages) <= maxTurns {
		result := make([]model.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]model.Message, len(source))
	copy(result, source)
	return result
}
