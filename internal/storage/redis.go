package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"Trainer-Console/server/internal/config"
	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
)

const (
	configSnapshotKey = "config:snapshot"
	fieldData         = "data"
	fieldRevision     = "revision"
	fieldUpdatedAt    = "updated_at"
)

// RedisStore persists TrainingConfig snapshots in a Redis hash.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// SaveConfig stores the snapshot unless a newer revision is already stored.
// The check and the write run in one optimistic transaction.
func (s *RedisStore) SaveConfig(ctx context.Context, revision uint64, cfg models.TrainingConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	key := s.key(configSnapshotKey)
	txf := func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, fieldRevision).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if stored != "" {
			if prev, perr := strconv.ParseUint(stored, 10, 64); perr == nil && prev > revision {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldData, data,
				fieldRevision, strconv.FormatUint(revision, 10),
				fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339),
			)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		return fmt.Errorf("failed to store config snapshot: %w", err)
	}
	return nil
}

// LoadConfig returns the stored snapshot and its revision, or
// interfaces.ErrNoSnapshot.
func (s *RedisStore) LoadConfig(ctx context.Context) (models.TrainingConfig, uint64, error) {
	fields, err := s.client.HGetAll(ctx, s.key(configSnapshotKey)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load config snapshot: %w", err)
	}
	return decodeSnapshot(fields)
}

func decodeSnapshot(fields map[string]string) (models.TrainingConfig, uint64, error) {
	data, ok := fields[fieldData]
	if !ok {
		return nil, 0, interfaces.ErrNoSnapshot
	}

	var cfg models.TrainingConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal config snapshot: %w", err)
	}

	// Snapshots written before revisions were stored restore as revision 0.
	revision, _ := strconv.ParseUint(fields[fieldRevision], 10, 64)
	return cfg, revision, nil
}
