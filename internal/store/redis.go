package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.LogStore = (*Redis)(nil)

// RedisConfig is decoded from the inline store configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Redis is a LogStore keeping every entry as JSON under its id,
// indexed by sorted sets scored with the creation time in milliseconds.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "vrcban:"
	}
	return &Redis{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *Redis) entryKey(id string) string {
	return s.prefix + "log:" + id
}

func (s *Redis) recentKey() string {
	return s.prefix + "idx:recent"
}

func (s *Redis) actorKey(actorID string) string {
	return s.prefix + "idx:actor:" + actorID
}

func (s *Redis) targetKey(targetID string) string {
	return s.prefix + "idx:target:" + targetID
}

func (s *Redis) eventKey(eventType core.EventType) string {
	return s.prefix + "idx:event:" + string(eventType)
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (s *Redis) Insert(ctx context.Context, entry core.AuditLogEntry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("%w: encoding %s: %w", core.ErrStoreWrite, entry.ID, err)
	}

	// re-adding an id to the indexes is a no-op, so a duplicate leaves the store unchanged
	member := redis.Z{Score: score(entry.CreatedAt), Member: entry.ID}
	pipe := s.client.TxPipeline()
	created := pipe.SetNX(ctx, s.entryKey(entry.ID), data, 0)
	pipe.ZAdd(ctx, s.recentKey(), member)
	pipe.ZAdd(ctx, s.actorKey(entry.ActorID), member)
	pipe.ZAdd(ctx, s.eventKey(entry.EventType), member)
	if entry.TargetID != "" {
		pipe.ZAdd(ctx, s.targetKey(entry.TargetID), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: inserting %s: %w", core.ErrStoreWrite, entry.ID, err)
	}
	return created.Val(), nil
}

func (s *Redis) ByTarget(ctx context.Context, targetID string, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(ctx, s.targetKey(targetID), limit)
}

func (s *Redis) ByActor(ctx context.Context, actorID string, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(ctx, s.actorKey(actorID), limit)
}

func (s *Redis) ByEvent(ctx context.Context, eventType core.EventType, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(ctx, s.eventKey(eventType), limit)
}

func (s *Redis) Recent(ctx context.Context, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(ctx, s.recentKey(), limit)
}

func (s *Redis) Window(ctx context.Context, since time.Time) ([]core.AuditLogEntry, error) {
	lower := "-inf"
	if !since.IsZero() {
		// scores have millisecond precision
		lower = strconv.FormatInt(since.UnixMilli(), 10)
	}
	ids, err := s.client.ZRangeByScore(ctx, s.recentKey(), &redis.ZRangeBy{
		Min: lower,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("querying window: %w", err)
	}
	entries, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := entries[:0]
	for _, e := range entries {
		if !e.CreatedAt.Before(since) {
			res = append(res, e)
		}
	}
	return res, nil
}

func (s *Redis) newest(ctx context.Context, index string, limit int) ([]core.AuditLogEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, index, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", index, err)
	}
	return s.load(ctx, ids)
}

// load resolves ids to entries, keeping their order.
func (s *Redis) load(ctx context.Context, ids []string) ([]core.AuditLogEntry, error) {
	res := make([]core.AuditLogEntry, 0, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("index references missing entry %s", ids[i])
		}
		var e core.AuditLogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decoding entry %s: %w", ids[i], err)
		}
		res = append(res, e)
	}
	return res, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
