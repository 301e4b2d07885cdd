package logx

import (
	"os"
	"strings"

	"github.com/maya-companion/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when it parses as a zerolog level.
	Level string
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)
	if opts.Environment.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	}
	log.Logger = log.Logger.Level(parseLevel(opts.Environment.DefaultLogLevel(), zerolog.DebugLevel))

	if lvl := strings.TrimSpace(opts.Level); lvl != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(lvl)); err == nil {
			log.Logger = log.Logger.Level(parsed)
		} else {
			log.Warn().Str("level", lvl).Msg("Unknown log level; keeping environment default")
		}
	}
}

func parseLevel(name string, fallback zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fallback
	}
	return lvl
}

// Silence drops every log event, the same as running under the testing environment.
func Silence() {
	Init(LoggerOpts{Environment: core.Testing})
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
