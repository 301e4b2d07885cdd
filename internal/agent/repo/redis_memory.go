package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maya-companion/server/internal/agent/model"
	errx "github.com/maya-companion/server/internal/core/error"
	logx "github.com/maya-companion/server/pkg/logger"
)

const (
	fieldUserName     = "user_name"
	fieldSessionCount = "session_count"
	fieldTotalTurns   = "total_turns"
)

// RedisMemoryStore keeps the profile in a hash and the topic log in a list
// (newest at the head). The client is shared, so Close is a no-op.
type RedisMemoryStore struct {
	rdb       redis.Cmdable
	namespace string
	userName  string
	maxTopics int64
}

// NewRedisMemoryOpener returns an opener over a shared client. The location
// passed at open time replaces the default key namespace.
func NewRedisMemoryOpener(rdb redis.Cmdable, defaultNamespace, userName string) model.MemoryOpener {
	return func(ctx context.Context, location string) (model.MemoryStore, error) {
		if location == "" {
			location = defaultNamespace
		}
		return OpenRedisMemory(ctx, rdb, location, userName)
	}
}

// OpenRedisMemory seeds the profile hash under namespace and returns the store.
func OpenRedisMemory(ctx context.Context, rdb redis.Cmdable, namespace, userName string) (*RedisMemoryStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if namespace == "" {
		namespace = "maya"
	}
	if userName == "" {
		userName = model.DefaultUserName
	}
	r := &RedisMemoryStore{rdb: rdb, namespace: namespace, userName: userName, maxTopics: 1000}
	if err := r.seed(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RedisMemoryStore) profileKey() string {
	return fmt.Sprintf("%s:profile", r.namespace)
}

func (r *RedisMemoryStore) topicsKey() string {
	return fmt.Sprintf("%s:topics", r.namespace)
}

func (r *RedisMemoryStore) seed(ctx context.Context) error {
	key := r.profileKey()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldUserName, r.userName)
		pipe.HSetNX(ctx, key, fieldSessionCount, 0)
		pipe.HSetNX(ctx, key, fieldTotalTurns, 0)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to seed profile in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisMemoryStore) GetProfile(ctx context.Context) (model.Profile, error) {
	key := r.profileKey()
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load profile from redis")
		return model.Profile{}, errx.WrapRedis(err)
	}
	if len(fields) == 0 {
		return model.DefaultProfile(r.userName), nil
	}

	p := model.DefaultProfile(fields[fieldUserName])
	if p.SessionCount, err = atoiField(fields, fieldSessionCount); err != nil {
		return model.Profile{}, err
	}
	if p.TotalTurns, err = atoiField(fields, fieldTotalTurns); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

func (r *RedisMemoryStore) StartSession(ctx context.Context) (int, error) {
	key := r.profileKey()
	n, err := r.rdb.HIncrBy(ctx, key, fieldSessionCount, 1).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to increment session count")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

func (r *RedisMemoryStore) GetRecentTopics(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = model.DefaultRecentTopics
	}
	key := r.topicsKey()
	rows, err := r.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load topics from redis")
		return nil, errx.WrapRedis(err)
	}

	topics := make([]string, 0, len(rows))
	for i, row := range rows {
		var e model.TopicEntry
		if err := json.Unmarshal([]byte(row), &e); err != nil {
			logx.Error().Err(err).Str("key", key).Int("index", i).Msg("failed to unmarshal topic")
			return nil, fmt.Errorf("unmarshal topic at index %d: %w", i, err)
		}
		topics = append(topics, e.Message)
	}
	return topics, nil
}

func (r *RedisMemoryStore) LogTurn(ctx context.Context, message string, intent model.Intent, sessionID int) error {
	if intent == model.IntentUnset {
		intent = model.IntentGeneral
	}
	b, err := json.Marshal(model.TopicEntry{
		SessionID: sessionID,
		Message:   message,
		Intent:    intent,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal topic: %w", err)
	}

	topics := r.topicsKey()
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, topics, b)
		pipe.LTrim(ctx, topics, 0, r.maxTopics-1)
		pipe.HIncrBy(ctx, r.profileKey(), fieldTotalTurns, 1)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", topics).Msg("failed to log turn to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisMemoryStore) Close() error {
	return nil
}

func atoiField(fields map[string]string, name string) (int, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("profile field %s: %w", name, err)
	}
	return n, nil
}

var _ model.MemoryStore = (*RedisMemoryStore)(nil)
