// Package cache implements ports.CacheStore on Redis and in process memory.
// Values are stored as JSON so that both stores share the same semantics:
// a cached report is decoded into a fresh value on every read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloudecole/go-bulletin/internal/ports"
)

var (
	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrNilValue is returned when attempting to cache a nil value.
	ErrNilValue = errors.New("cache: value cannot be nil")

	// ErrInvalidTTL is returned when a negative TTL is provided.
	ErrInvalidTTL = errors.New("cache: invalid TTL")
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address in "host:port" form.
	Addr string

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number.
	DB int

	// Prefix namespaces every key written by the store. Clear only
	// removes keys under this prefix.
	Prefix string

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns the configuration for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Prefix:       "bulletin:",
		PoolSize:     10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c RedisConfig) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

var _ ports.CacheStore = (*RedisStore)(nil)

// RedisStore is a ports.CacheStore backed by Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and checks the connection with a PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(cfg.options())

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", ports.ErrServiceUnavailable, cfg.Addr, err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client. The store does not
// check the connection.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// Get retrieves and decodes the value stored under key into dest.
// A missing key is not an error. Undecodable data is reported as
// ports.ErrCacheCorrupted.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if key == "" {
		return false, ports.NewCacheError(key, "Get", ErrKeyEmpty)
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, ports.NewCacheError(key, "Get", unavailable(err))
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, ports.NewCacheError(key, "Get", fmt.Errorf("%w: %v", ports.ErrCacheCorrupted, err))
	}

	return true, nil
}

// Set stores value under key as JSON. A zero expiration keeps the value
// until it is deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := checkSet(key, value, expiration); err != nil {
		return ports.NewCacheError(key, "Set", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return ports.NewCacheError(key, "Set", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, data, expiration).Err(); err != nil {
		return ports.NewCacheError(key, "Set", unavailable(err))
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ports.NewCacheError(key, "Delete", ErrKeyEmpty)
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return ports.NewCacheError(key, "Delete", unavailable(err))
	}
	return nil
}

// Clear removes every key under the store prefix using SCAN. A store
// without a prefix refuses to clear the whole database.
func (s *RedisStore) Clear(ctx context.Context) error {
	if s.prefix == "" {
		return ports.NewCacheError("*", "Clear", errors.New("refusing to clear a store without prefix"))
	}

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 100)

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return ports.NewCacheError(s.prefix+"*", "Clear", unavailable(err))
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return ports.NewCacheError(s.prefix+"*", "Clear", unavailable(err))
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return ports.NewCacheError(s.prefix+"*", "Clear", unavailable(err))
		}
	}
	return nil
}

// checkSet validates the arguments of a Set call.
func checkSet(key string, value any, expiration time.Duration) error {
	switch {
	case key == "":
		return ErrKeyEmpty
	case value == nil:
		return ErrNilValue
	case expiration < 0:
		return ErrInvalidTTL
	}
	return nil
}

// unavailable marks a Redis transport error as retryable. Context errors
// are kept as they are.
func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
}
