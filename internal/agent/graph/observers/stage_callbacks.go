package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"

	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

type stageStartKey struct{}

// newStageHandler logs every pipeline stage with its duration and the trace
// line it added.
func newStageHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
			logx.Debug().Str("node", info.Name).Msg("Stage start")
			return context.WithValue(ctx, stageStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			ev := logx.Debug().Str("node", info.Name)
			if start, ok := ctx.Value(stageStartKey{}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(start))
			}
			if s, ok := output.(*model.TurnState); ok && s != nil && len(s.Steps) > 0 {
				ev = ev.Str("step", s.Steps[len(s.Steps)-1])
			}
			ev.Msg("Stage end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("node", info.Name).Msg("Stage error")
			return ctx
		}).
		Build()
}
