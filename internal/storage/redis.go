package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

const redisKeyPrefix = "turnkeeper:session:"

// RedisStore keeps the session under one Redis key per slot, without expiry.
type RedisStore struct {
	client *redis.Client
	slot   string
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects using a redis:// URL. A bare host:port is also accepted.
func NewRedisStore(redisURL, slot string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		slot:   slot,
		logger: logger,
	}, nil
}

func (r *RedisStore) key() string {
	return redisKeyPrefix + r.slot
}

func (r *RedisStore) Save(ctx context.Context, gs *state.GameSession) error {
	data, err := MarshalEnvelope(gs)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", gs.ID, "error", err)
		return err
	}
	if err := r.client.Set(ctx, r.key(), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", gs.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	r.logger.Debug("Redis SET successful", "key", r.key(), "turn", gs.TurnCount)
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (*state.GameSession, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load session", "key", r.key(), "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return UnmarshalEnvelope(data)
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		r.logger.Error("Failed to delete session", "key", r.key(), "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
