package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/maya-companion/server/internal/agent/graph"
	"github.com/maya-companion/server/internal/agent/model"
	"github.com/maya-companion/server/internal/agent/providers"
	"github.com/maya-companion/server/internal/agent/repo"
	"github.com/maya-companion/server/internal/core"
	logx "github.com/maya-companion/server/pkg/logger"
	pkgredis "github.com/maya-companion/server/pkg/redis"
)

const (
	backendSQLite = "sqlite"
	backendRedis  = "redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs). Built once in main and passed down.
type AppConfig struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// Agent configs
	Memory     model.MemoryConfig
	Completion model.CompletionConfig
	Prompt     model.PromptConfig
}

type app struct {
	cfg         AppConfig
	open        model.MemoryOpener
	memoryLabel string
	runner      graph.Runner
	closers     []func() error
}

func newApp(ctx context.Context, envFile string, debug bool) (*app, error) {
	// Load .env file; a missing file is fine, the environment may be set already
	envErr := godotenv.Load(envFile)

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	level := cfg.LogLevel
	if level == "" && !debug {
		// keep the chat readable; errors and warnings still show
		level = "warn"
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Env), Level: level})
	if envErr != nil {
		logx.Debug().Err(envErr).Str("file", envFile).Msg("Could not load .env file")
	}

	a := &app{cfg: cfg}
	if err := a.initMemory(); err != nil {
		return nil, err
	}

	completer, err := providers.NewCompleter(ctx, cfg.Completion)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build completion provider: %w", err)
	}

	a.runner, err = graph.BuildPipeline(ctx, graph.Config{
		Completer:         completer,
		OpenMemory:        a.open,
		Memory:            cfg.Memory,
		Prompt:            cfg.Prompt,
		CompletionTimeout: cfg.Completion.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return a, nil
}

func (a *app) initMemory() error {
	switch strings.ToLower(strings.TrimSpace(a.cfg.Memory.Backend)) {
	case "", backendSQLite:
		path := a.cfg.Memory.DBPath
		if path == "" {
			path = repo.DefaultSQLitePath()
		}
		a.open = repo.NewSQLiteMemoryOpener(path, a.cfg.Memory.UserName)
		a.memoryLabel = "sqlite " + path
	case backendRedis:
		rdb, err := a.cfg.Redis.New()
		if err != nil {
			return fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.open = repo.NewRedisMemoryOpener(rdb, a.cfg.Redis.KeyPrefix, a.cfg.Memory.UserName)
		a.memoryLabel = "redis " + a.cfg.Redis.KeyPrefix
		logx.Debug().Msg("Connected to Redis successfully")
	default:
		return fmt.Errorf("unknown MEMORY_BACKEND %q", a.cfg.Memory.Backend)
	}
	return nil
}

// startSession bumps the session counter once for this process.
func (a *app) startSession(ctx context.Context) (int, model.Profile, error) {
	store, err := a.open(ctx, "")
	if err != nil {
		return 0, model.DefaultProfile(a.cfg.Memory.UserName), err
	}
	defer store.Close()

	id, err := store.StartSession(ctx)
	if err != nil {
		return 0, model.DefaultProfile(a.cfg.Memory.UserName), err
	}
	profile, err := store.GetProfile(ctx)
	if err != nil {
		return id, model.DefaultProfile(a.cfg.Memory.UserName), err
	}
	return id, profile, nil
}

// currentSession reads the session counter without starting a new session.
func (a *app) currentSession(ctx context.Context) (int, error) {
	profile, _, err := a.profile(ctx)
	return profile.SessionCount, err
}

func (a *app) profile(ctx context.Context) (model.Profile, []string, error) {
	store, err := a.open(ctx, "")
	if err != nil {
		return model.Profile{}, nil, err
	}
	defer store.Close()

	profile, err := store.GetProfile(ctx)
	if err != nil {
		return model.Profile{}, nil, err
	}
	topics, err := store.GetRecentTopics(ctx, a.cfg.Memory.RecentTopicLimit())
	if err != nil {
		return profile, nil, err
	}
	return profile, topics, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logx.Warn().Err(err).Msg("Error during shutdown")
		}
	}
}
