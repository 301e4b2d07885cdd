package graph

import (
	"context"
	"fmt"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/maya-companion/server/internal/agent/graph/nodes"
	"github.com/maya-companion/server/internal/agent/graph/observers"
	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

const graphName = "maya_turn"

// Runner executes one turn through the compiled pipeline.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnState) (model.TurnState, error)
}

// Config holds everything needed to compose the turn pipeline.
type Config struct {
	// Completer backs the math and help generators. Nil runs them in offline mode.
	Completer model.Completer
	// OpenMemory opens the memory store once per memory stage.
	OpenMemory        model.MemoryOpener
	Memory            model.MemoryConfig
	Prompt            model.PromptConfig
	CompletionTimeout time.Duration
	// Callbacks are added to the default zerolog observers on every run.
	Callbacks []einocb.Handler
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *Config
	graph  *compose.Graph[*model.TurnState, *model.TurnState]
}

type graphRunner struct {
	runnable  compose.Runnable[*model.TurnState, *model.TurnState]
	callbacks []einocb.Handler
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnState) (model.TurnState, error) {
	if err := in.Validate(); err != nil {
		return model.TurnState{}, fmt.Errorf("invalid turn state: %w", err)
	}

	out, err := r.runnable.Invoke(ctx, &in, compose.WithCallbacks(r.callbacks...))
	if err != nil {
		return model.TurnState{}, err
	}
	if out == nil {
		return model.TurnState{}, fmt.Errorf("pipeline returned no state")
	}
	return *out, nil
}

// BuildPipeline builds and compiles the graph and returns a Runner.
func BuildPipeline(ctx context.Context, cfg Config) (Runner, error) {
	runnable, err := BuildGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	handlers := append([]einocb.Handler{observers.NewAllCallbacks()}, cfg.Callbacks...)
	logx.Debug().Msg("Turn pipeline built successfully")
	return &graphRunner{runnable: runnable, callbacks: handlers}, nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *Config) (compose.Runnable[*model.TurnState, *model.TurnState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.OpenMemory == nil {
		logx.Warn().Msg("No memory store configured; memory stages will use defaults")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.TurnState, *model.TurnState](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds every stage as a lambda node
func (b *GraphBuilder) addNodes() error {
	completion := nodes.CompletionStageConfig{
		Completer: b.config.Completer,
		Prompt:    b.config.Prompt,
		Timeout:   b.config.CompletionTimeout,
	}

	stages := []struct {
		name string
		fn   nodes.StageFunc
		opts []compose.GraphAddNodeOpt
	}{
		{
			name: nodes.NodeLoadMemory,
			fn:   nodes.NewLoadMemoryStage(b.config.OpenMemory, b.config.Memory.RecentTopicLimit(), b.config.Memory.UserName),
			opts: []compose.GraphAddNodeOpt{compose.WithStatePreHandler(nodes.NewSeedStatePreHandler())},
		},
		{name: nodes.NodeDetectLanguage, fn: nodes.DetectLanguageStage},
		{name: nodes.NodeUnderstandIntent, fn: nodes.UnderstandIntentStage},
		{name: nodes.NodeGreetResponse, fn: nodes.NewGreetStage(b.config.Prompt)},
		{name: nodes.NodeFarewellResponse, fn: nodes.FarewellStage},
		{name: nodes.NodeMathTutorResponse, fn: nodes.NewMathTutorStage(completion)},
		{name: nodes.NodeHelpResponse, fn: nodes.NewHelpStage(completion)},
		{name: nodes.NodeSaveMemory, fn: nodes.NewSaveMemoryStage(b.config.OpenMemory)},
	}

	for _, st := range stages {
		opts := append([]compose.GraphAddNodeOpt{compose.WithNodeName(st.name)}, st.opts...)
		if err := b.graph.AddLambdaNode(st.name, nodes.NewStageNode(st.name, st.fn), opts...); err != nil {
			logx.Error().Err(err).Str("node", st.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", st.name, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections; the intent branch is added separately
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeLoadMemory},
		{nodes.NodeLoadMemory, nodes.NodeDetectLanguage},
		{nodes.NodeDetectLanguage, nodes.NodeUnderstandIntent},
		{nodes.NodeSaveMemory, compose.END},
	}
	for _, n := range nodes.ResponseNodes {
		edges = append(edges, [2]string{n, nodes.NodeSaveMemory})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the intent routing branch
func (b *GraphBuilder) addBranches() error {
	endNodes := make(map[string]bool, len(nodes.ResponseNodes))
	for _, n := range nodes.ResponseNodes {
		endNodes[n] = true
	}

	intentBranch := compose.NewGraphBranch(nodes.NewRouteCondition(), endNodes)
	if err := b.graph.AddBranch(nodes.NodeUnderstandIntent, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.TurnState, *model.TurnState], error) {
	// The longest path is six nodes; anything beyond that is a wiring bug.
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithMaxRunSteps(20),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
