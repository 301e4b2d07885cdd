package nodes

import (
	"context"
	"fmt"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

// NewLoadMemoryStage reads the profile and up to topicLimit recent topics.
// Any store failure degrades to defaults; the pipeline keeps going.
func NewLoadMemoryStage(open model.MemoryOpener, topicLimit int, defaultName string) StageFunc {
	if topicLimit <= 0 {
		topicLimit = model.DefaultRecentTopics
	}
	return func(ctx context.Context, s model.TurnState) model.TurnUpdate {
		profile, topics, err := loadMemory(ctx, open, s.MemoryDBPath.OrElse(""), topicLimit)
		if err != nil {
			logx.Warn().
				Err(err).
				Str("node", NodeLoadMemory).
				Msg("Memory unavailable; using defaults")
			profile = model.DefaultProfile(defaultName)
			topics = []string{}
		}
		if len(topics) > topicLimit {
			topics = topics[:topicLimit]
		}

		step := model.Step(NodeLoadMemory, "session_count=%d, %d recent topic(s)", profile.SessionCount, len(topics))
		if err != nil {
			step += " (defaults: " + err.Error() + ")"
		}
		logx.Debug().
			Str("node", NodeLoadMemory).
			Int("session_count", profile.SessionCount).
			Int("topics", len(topics)).
			Msg("Memory loaded")

		return model.TurnUpdate{
			UserName:     model.Some(profile.UserName),
			SessionCount: model.Some(profile.SessionCount),
			RecentTopics: model.Some(topics),
			Steps:        []string{step},
		}
	}
}

func loadMemory(ctx context.Context, open model.MemoryOpener, location string, limit int) (model.Profile, []string, error) {
	if open == nil {
		return model.Profile{}, nil, fmt.Errorf("no memory store configured")
	}
	store, err := open(ctx, location)
	if err != nil {
		return model.Profile{}, nil, fmt.Errorf("open memory: %w", err)
	}
	defer closeStore(store)

	profile, err := store.GetProfile(ctx)
	if err != nil {
		return model.Profile{}, nil, fmt.Errorf("get profile: %w", err)
	}
	topics, err := store.GetRecentTopics(ctx, limit)
	if err != nil {
		return model.Profile{}, nil, fmt.Errorf("get recent topics: %w", err)
	}
	if topics == nil {
		topics = []string{}
	}
	return profile, topics, nil
}

// NewSaveMemoryStage logs the turn as a topic. Farewells are not topics and
// are skipped. Failures only show up in the trace.
func NewSaveMemoryStage(open model.MemoryOpener) StageFunc {
	return func(ctx context.Context, s model.TurnState) model.TurnUpdate {
		if s.Intent == model.IntentFarewell {
			logx.Debug().Str("node", NodeSaveMemory).Msg("Farewell turn not logged")
			return model.TurnUpdate{Steps: []string{model.Step(NodeSaveMemory, "skipped (farewell)")}}
		}

		status := "ok"
		if err := saveTurn(ctx, open, s); err != nil {
			logx.Error().
				Err(err).
				Str("node", NodeSaveMemory).
				Int("session_id", s.Session()).
				Msg("Error saving turn to memory")
			status = "error: " + err.Error()
		} else {
			logx.Debug().
				Str("node", NodeSaveMemory).
				Int("session_id", s.Session()).
				Str("intent", string(s.Intent)).
				Msg("Turn saved to memory")
		}
		return model.TurnUpdate{Steps: []string{model.Step(NodeSaveMemory, "logged turn (%s)", status)}}
	}
}

func saveTurn(ctx context.Context, open model.MemoryOpener, s model.TurnState) error {
	if open == nil {
		return fmt.Errorf("no memory store configured")
	}
	store, err := open(ctx, s.MemoryDBPath.OrElse(""))
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer closeStore(store)

	intent := s.Intent
	if intent == model.IntentUnset {
		intent = model.IntentGeneral
	}
	if err := store.LogTurn(ctx, s.UserInput, intent, s.Session()); err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

func closeStore(store model.MemoryStore) {
	if err := store.Close(); err != nil {
		logx.Warn().Err(err).Msg("Error closing memory store")
	}
}
