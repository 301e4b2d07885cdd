package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

// ResponseNodes are the mutually exclusive branch targets after intent classification.
var ResponseNodes = []string{
	NodeGreetResponse,
	NodeFarewellResponse,
	NodeMathTutorResponse,
	NodeHelpResponse,
}

// RouteByIntent maps an intent to its response node. Anything that is not a
// greeting, farewell or math goes to general help.
func RouteByIntent(intent model.Intent) string {
	switch intent {
	case model.IntentGreeting:
		return NodeGreetResponse
	case model.IntentFarewell:
		return NodeFarewellResponse
	case model.IntentMath:
		return NodeMathTutorResponse
	default:
		return NodeHelpResponse
	}
}

// NewRouteCondition creates the branch condition after understand_intent.
func NewRouteCondition() func(context.Context, *model.TurnState) (string, error) {
	return func(ctx context.Context, in *model.TurnState) (string, error) {
		var intent model.Intent
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			intent = s.Intent
			return nil
		})
		if err != nil && in != nil {
			intent = in.Intent
		}
		next := RouteByIntent(intent)
		logx.Debug().Str("intent", string(intent)).Str("next", next).Msg("Routing by intent")
		return next, nil
	}
}
