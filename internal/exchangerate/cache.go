package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grocerycompare/price-service/internal/database"
)

// ConfigStore is the app_config accessor of the database.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string, dest any) error
	PutConfig(ctx context.Context, key string, value any) error
}

// PostgresCache keeps the rate in the app_config table.
type PostgresCache struct {
	store ConfigStore
}

// NewPostgresCache creates a cache over store.
func NewPostgresCache(store ConfigStore) *PostgresCache {
	return &PostgresCache{store: store}
}

func (c *PostgresCache) Load(ctx context.Context) (Record, bool, error) {
	var rec Record
	err := c.store.GetConfig(ctx, ConfigKey, &rec)
	if errors.Is(err, database.ErrConfigNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (c *PostgresCache) Store(ctx context.Context, rec Record) error {
	return c.store.PutConfig(ctx, ConfigKey, rec)
}

// RedisConfig holds the connection settings of the Redis cache.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient creates a client and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisCache keeps the rate under one key. The key expires after ttl so
// Redis never serves a stale rate to other instances.
type RedisCache struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

// NewRedisCache creates a cache storing under key.
func NewRedisCache(rdb redis.Cmdable, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "grocery:" + ConfigKey
	}
	return &RedisCache{rdb: rdb, key: key, ttl: ttl}
}

func (c *RedisCache) Load(ctx context.Context) (Record, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode cached rate: %w", err)
	}
	return rec, true, nil
}

func (c *RedisCache) Store(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
