package redis

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const entryKeyPrefix = "datschain:entry:"

// RedisStore is a Redis-backed implementation of persistence.Store, suitable
// for deployments where the ledger KV should live off the node's disk.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string

	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix prepended to all keys (for
	// multi-tenant setups). Keys always carry "datschain:entry:" after it.
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed store and verifies connectivity.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	logger.Sugar().Infow("Redis store initialized", "address", cfg.Address, "db", cfg.DB)

	return &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Put persists a formatted entry under its content key.
func (r *RedisStore) Put(ctx context.Context, key [32]byte, value string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.client.Set(ctx, r.storageKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

// Get retrieves the formatted entry for a key. Absence is not an error.
func (r *RedisStore) Get(ctx context.Context, key [32]byte) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", false, fmt.Errorf("store is closed")
	}

	value, err := r.client.Get(ctx, r.storageKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read entry: %w", err)
	}
	return value, true, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	return r.client.Close()
}

func (r *RedisStore) storageKey(key [32]byte) string {
	return r.keyPrefix + entryKeyPrefix + hex.EncodeToString(key[:])
}
