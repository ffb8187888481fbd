package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// DefaultRedisKey holds the snapshot when no key is configured.
const DefaultRedisKey = "pipeline_deals"

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	Key      string
	DB       int
}

// RedisBackend stores the snapshot as one JSON string under Key and the
// stage history as one list per deal.
type RedisBackend struct {
	client *redis.Client
	logger *slog.Logger
	key    string
	retry  common.RetryOptions
}

var (
	_ service.Backend       = (*RedisBackend)(nil)
	_ service.TransitionLog = (*RedisBackend)(nil)
)

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisBackend, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(cfg.Addr, "redis addr"); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: failed to connect to Redis: %w", common.ErrBackendUnavailable, err)
	}

	return NewRedisBackendFromClient(client, cfg.Key, logger), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, key string, logger *slog.Logger) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{
		client: client,
		key:    key,
		logger: common.OrDefault(logger),
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
	}
}

// Key returns the snapshot key.
func (r *RedisBackend) Key() string {
	return r.key
}

// Load reads the snapshot. A missing key is an empty store.
func (r *RedisBackend) Load(ctx context.Context) (service.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return service.Snapshot{}, err
	}

	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return service.Snapshot{Version: service.SnapshotVersion}, nil
	}
	if err != nil {
		return service.Snapshot{}, fmt.Errorf("%w: failed to read %s: %w", common.ErrBackendUnavailable, r.key, err)
	}
	return DecodeSnapshot(data)
}

// Save writes the snapshot, retrying transient failures.
func (r *RedisBackend) Save(ctx context.Context, snap service.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	return common.WithRetry(ctx, func() error {
		if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
			r.logger.Warn("redis write failed", "key", r.key, "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return nil
	}, r.retry)
}

// Append pushes a transition onto the deal's history list.
func (r *RedisBackend) Append(ctx context.Context, t model.StageTransition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode transition: %w", err)
	}
	if err := r.client.RPush(ctx, r.historyKey(t.DealID), data).Err(); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// ForDeal returns the transitions of one deal, oldest first.
func (r *RedisBackend) ForDeal(ctx context.Context, dealID int) ([]model.StageTransition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	items, err := r.client.LRange(ctx, r.historyKey(dealID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}

	out := make([]model.StageTransition, 0, len(items))
	for _, item := range items {
		var t model.StageTransition
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("%w: transition: %w", ErrCorruptedData, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Close closes the client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) historyKey(dealID int) string {
	return fmt.Sprintf("%s:history:%d", r.key, dealID)
}
