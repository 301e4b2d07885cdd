package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/maya-companion/server/internal/agent/model"
)

const (
	NodeLoadMemory        = "load_memory"
	NodeDetectLanguage    = "detect_language"
	NodeUnderstandIntent  = "understand_intent"
	NodeGreetResponse     = "greet_response"
	NodeFarewellResponse  = "farewell_response"
	NodeMathTutorResponse = "math_tutor_response"
	NodeHelpResponse      = "help_response"
	NodeSaveMemory        = "save_memory"
)

// StageFunc is one pipeline stage: it reads a snapshot of the turn and
// returns the delta it wants merged. Stages never see the live state.
type StageFunc func(ctx context.Context, state model.TurnState) model.TurnUpdate

// NewStageNode wraps fn as a graph lambda. The graph-local *model.TurnState is
// the source of truth; the value passed along edges is only a copy of it.
func NewStageNode(name string, fn StageFunc) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.TurnState) (*model.TurnState, error) {
		var snapshot model.TurnState
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			snapshot = s.Clone()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: read state: %w", name, err)
		}

		update := fn(ctx, snapshot)

		var out model.TurnState
		err = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Apply(update)
			out = s.Clone()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: merge state: %w", name, err)
		}
		return &out, nil
	})
}

// NewSeedStatePreHandler copies the caller's initial state into graph-local
// state. Attached to the first node only.
func NewSeedStatePreHandler() func(context.Context, *model.TurnState, *model.TurnState) (*model.TurnState, error) {
	return func(ctx context.Context, in *model.TurnState, s *model.TurnState) (*model.TurnState, error) {
		if in == nil {
			return nil, fmt.Errorf("nil initial turn state")
		}
		*s = in.Clone()
		return in, nil
	}
}
