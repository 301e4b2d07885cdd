package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maya-companion/server/internal/agent/graph/conversations"
	"github.com/maya-companion/server/internal/cli"
	logx "github.com/maya-companion/server/pkg/logger"
)

var (
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "maya",
	Short: "MAYA - a bilingual STEM companion for one curious child",
	Long: `MAYA chats in English, Hindi and Hinglish. Every utterance runs through a
fixed pipeline: load memory, detect language, classify intent, answer with
one of the greeting, farewell, math-tutor or help generators, save memory.

Environment Variables (also read from .env):
  MEMORY_BACKEND       - sqlite (default) or redis
  MEMORY_DB_PATH       - SQLite file (default ~/.maya/memory.db)
  REDIS_URL            - Redis connection URL when MEMORY_BACKEND=redis
  COMPLETION_PROVIDER  - ollama (default), openai or gemini
  COMPLETION_MODEL     - model id (default llama3.2:3b)
  COMPLETION_TIMEOUT   - per-call deadline (default 60s)
  MAYA_OFFLINE_MODE    - true to run without a completion service`,
	SilenceUsage: true,
	RunE:         runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session (default)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <utterance>",
	Short: "Run one utterance through the pipeline and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the stored profile and recent topics",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print the pipeline trace after every reply")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, envFile, debug)
	if err != nil {
		return err
	}
	defer app.Close()

	sessionID, profile, err := app.startSession(ctx)
	if err != nil {
		// memory stages fall back to defaults on their own
		logx.Warn().Err(err).Msg("Could not start memory session")
	}

	render := cli.NewRenderer(cmd.OutOrStdout(), app.cfg.Prompt.AssistantName)
	render.Banner(cli.BannerInfo{
		UserName:  profile.UserName,
		Session:   sessionID,
		Provider:  app.cfg.Completion.Provider,
		Model:     app.cfg.Completion.Model,
		Memory:    app.memoryLabel,
		Offline:   app.cfg.Completion.Offline,
		DebugMode: debug,
	})

	repl, err := cli.NewREPL(cli.REPLConfig{
		Runner:   app.runner,
		Conv:     conversations.NewMessagesManager(sessionID, ""),
		Input:    cli.NewKeyboardInput(cmd.InOrStdin()),
		Render:   render,
		UserName: profile.UserName,
		Debug:    debug,
	})
	if err != nil {
		return err
	}
	return repl.Run(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, envFile, debug)
	if err != nil {
		return err
	}
	defer app.Close()

	sessionID, err := app.currentSession(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Could not read memory session")
	}

	conv := conversations.NewMessagesManager(sessionID, "")
	out, err := app.runner.Invoke(ctx, conv.Begin(strings.Join(args, " ")))
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}

	render := cli.NewRenderer(cmd.OutOrStdout(), app.cfg.Prompt.AssistantName)
	render.Reply(out)
	if debug {
		render.Steps(out.Steps)
	}
	return nil
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx, envFile, debug)
	if err != nil {
		return err
	}
	defer app.Close()

	profile, topics, err := app.profile(ctx)
	if err != nil {
		return err
	}
	cli.NewRenderer(cmd.OutOrStdout(), app.cfg.Prompt.AssistantName).Profile(profile, topics)
	return nil
}
