package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/maya-companion/server/internal/agent/model"
	errx "github.com/maya-companion/server/internal/core/error"
	logx "github.com/maya-companion/server/pkg/logger"
)

const (
	// DefaultDirPermissions defines the permissions for a new database directory.
	DefaultDirPermissions = 0o755
	busyTimeoutMillis     = 5000
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// DefaultSQLitePath is ~/.maya/memory.db, or ./.maya/memory.db when the home
// directory cannot be resolved.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".maya", "memory.db")
	}
	return filepath.Join(home, ".maya", "memory.db")
}

// SQLiteMemoryStore keeps the profile row and topic log in a single SQLite file.
// One store is opened per pipeline stage and closed right after.
type SQLiteMemoryStore struct {
	db       *sql.DB
	path     string
	userName string
}

// NewSQLiteMemoryOpener returns an opener bound to a default path and seed name.
func NewSQLiteMemoryOpener(defaultPath, userName string) model.MemoryOpener {
	return func(ctx context.Context, location string) (model.MemoryStore, error) {
		if location == "" {
			location = defaultPath
		}
		return OpenSQLiteMemory(ctx, location, userName)
	}
}

// OpenSQLiteMemory opens (creating if needed) the database at path, applies the
// schema and seeds the profile row.
func OpenSQLiteMemory(ctx context.Context, path, userName string) (*SQLiteMemoryStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if userName == "" {
		userName = model.DefaultUserName
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		logx.Error().Err(err).Str("dir", dir).Msg("failed to create memory directory")
		return nil, fmt.Errorf("create memory directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errx.WrapSQLite(err)
	}
	// Only one writer at a time; keeps SQLITE_BUSY away within a process.
	db.SetMaxOpenConns(1)

	s := &SQLiteMemoryStore{db: db, path: path, userName: userName}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteMemoryStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigrations); err != nil {
		logx.Error().Err(err).Str("path", s.path).Msg("failed to apply memory schema")
		return fmt.Errorf("apply memory schema: %w", errx.WrapSQLite(err))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profile (id, user_name, session_count, total_turns) VALUES (1, ?, 0, 0)`,
		s.userName,
	)
	if err != nil {
		logx.Error().Err(err).Str("path", s.path).Msg("failed to seed profile")
		return fmt.Errorf("seed profile: %w", errx.WrapSQLite(err))
	}
	return nil
}

func (s *SQLiteMemoryStore) GetProfile(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_name, session_count, total_turns FROM profile WHERE id = 1`,
	).Scan(&p.UserName, &p.SessionCount, &p.TotalTurns)
	if err == sql.ErrNoRows {
		return model.DefaultProfile(s.userName), nil
	}
	if err != nil {
		logx.Error().Err(err).Str("path", s.path).Msg("failed to read profile")
		return model.Profile{}, fmt.Errorf("read profile: %w", errx.WrapSQLite(err))
	}
	return p, nil
}

func (s *SQLiteMemoryStore) StartSession(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errx.WrapSQLite(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE profile SET session_count = session_count + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("increment session count: %w", errx.WrapSQLite(err))
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT session_count FROM profile WHERE id = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("read session count: %w", errx.WrapSQLite(err))
	}
	if err := tx.Commit(); err != nil {
		return 0, errx.WrapSQLite(err)
	}

	logx.Debug().Int("session_count", count).Str("path", s.path).Msg("session started")
	return count, nil
}

func (s *SQLiteMemoryStore) GetRecentTopics(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = model.DefaultRecentTopics
	}
	rows, err := s.db.QueryContext(ctx, `SELECT message FROM topics ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent topics: %w", errx.WrapSQLite(err))
	}
	defer rows.Close()

	topics := make([]string, 0, limit)
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan topic: %w", errx.WrapSQLite(err))
		}
		topics = append(topics, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", errx.WrapSQLite(err))
	}
	return topics, nil
}

func (s *SQLiteMemoryStore) LogTurn(ctx context.Context, message string, intent model.Intent, sessionID int) error {
	if intent == model.IntentUnset {
		intent = model.IntentGeneral
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapSQLite(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO topics (session_id, message, intent, timestamp) VALUES (?, ?, ?, ?)`,
		sessionID, message, string(intent), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert topic: %w", errx.WrapSQLite(err))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE profile SET total_turns = total_turns + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("increment total turns: %w", errx.WrapSQLite(err))
	}
	if err := tx.Commit(); err != nil {
		return errx.WrapSQLite(err)
	}
	return nil
}

func (s *SQLiteMemoryStore) Close() error {
	return s.db.Close()
}

var _ model.MemoryStore = (*SQLiteMemoryStore)(nil)
