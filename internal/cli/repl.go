package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maya-companion/server/internal/agent/graph"
	"github.com/maya-companion/server/internal/agent/graph/conversations"
	"github.com/maya-companion/server/internal/agent/model"
	logx "github.com/maya-companion/server/pkg/logger"
)

const (
	cmdHistory = "!history"
	cmdDebug   = "!debug"
	cmdClear   = "!clear"
)

// REPL drives one chat session: one pipeline invocation per utterance until
// a farewell or end of input.
type REPL struct {
	runner   graph.Runner
	conv     *conversations.MessagesManager
	input    InputSource
	render   *Renderer
	userName string
	debug    bool
}

type REPLConfig struct {
	Runner   graph.Runner
	Conv     *conversations.MessagesManager
	Input    InputSource
	Render   *Renderer
	UserName string
	Debug    bool
}

func NewREPL(cfg REPLConfig) (*REPL, error) {
	if cfg.Runner == nil || cfg.Conv == nil || cfg.Input == nil || cfg.Render == nil {
		return nil, fmt.Errorf("repl: runner, conversation, input and renderer are required")
	}
	name := cfg.UserName
	if strings.TrimSpace(name) == "" {
		name = model.DefaultUserName
	}
	return &REPL{
		runner:   cfg.Runner,
		conv:     cfg.Conv,
		input:    cfg.Input,
		render:   cfg.Render,
		userName: name,
		debug:    cfg.Debug,
	}, nil
}

// Run loops until farewell, end of input or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	for {
		r.render.Prompt(r.userName)
		line, err := r.input.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.render.Info("")
				r.summary()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if line == "" {
			// nothing heard; ask again without invoking the pipeline
			continue
		}
		if r.command(line) {
			continue
		}

		out, err := r.runner.Invoke(ctx, r.conv.Begin(line))
		if err != nil {
			logx.Error().Err(err).Msg("Turn pipeline failed")
			return fmt.Errorf("run turn: %w", err)
		}
		r.conv.Commit(out)

		r.render.Reply(out)
		if r.debug {
			r.render.Steps(out.Steps)
		}
		if out.Intent == model.IntentFarewell {
			r.summary()
			return nil
		}
	}
}

func (r *REPL) command(line string) bool {
	switch strings.ToLower(line) {
	case cmdHistory:
		r.render.History(r.conv.Tail(historyRows), len(r.conv.Messages()))
	case cmdDebug:
		r.debug = !r.debug
		r.render.Info(fmt.Sprintf("debug trace: %t", r.debug))
	case cmdClear:
		r.conv.Clear()
		r.render.Info("Conversation cleared.")
	default:
		return false
	}
	return true
}

func (r *REPL) summary() {
	r.render.Summary(r.conv.SessionID(), r.conv.Turns(), len(r.conv.Messages()))
}
