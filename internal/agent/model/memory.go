package model

import (
	"context"
	"time"
)

const (
	// DefaultUserName is used until a profile says otherwise.
	DefaultUserName = "Srinika"
	// DefaultRecentTopics bounds how many topics the memory stage loads.
	DefaultRecentTopics = 3
)

// Profile is the singleton user record kept by the memory store.
type Profile struct {
	UserName     string `json:"user_name"`
	SessionCount int    `json:"session_count"`
	TotalTurns   int    `json:"total_turns"`
}

// DefaultProfile is what a brand-new store (or a failed read) reports.
func DefaultProfile(userName string) Profile {
	if userName == "" {
		userName = DefaultUserName
	}
	return Profile{UserName: userName}
}

// TopicEntry is one row of the append-only topic log.
type TopicEntry struct {
	SessionID int       `json:"session_id"`
	Message   string    `json:"message"`
	Intent    Intent    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

type MemoryStore interface {
	// GetProfile returns the singleton profile, seeding it on first access.
	GetProfile(ctx context.Context) (Profile, error)

	// StartSession increments the session count and returns the new value.
	// Call once per process start, not per turn.
	StartSession(ctx context.Context) (int, error)

	// GetRecentTopics returns up to limit logged messages, most recent first.
	GetRecentTopics(ctx context.Context, limit int) ([]string, error)

	// LogTurn appends a topic entry and increments the profile's total turns.
	LogTurn(ctx context.Context, message string, intent Intent, sessionID int) error

	// Close releases whatever Open acquired.
	Close() error
}

// MemoryOpener opens a store at location. An empty location selects the
// backend's default.
type MemoryOpener func(ctx context.Context, location string) (MemoryStore, error)

// Completer is the text-completion collaborator used by the math and help generators.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message) (string, error)
}
