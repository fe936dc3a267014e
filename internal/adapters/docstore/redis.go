package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps documents as plain string values in redis. Useful for
// deployments that already run redis and want registry and snapshot state
// to survive host replacement.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	// KeyPrefix namespaces documents, e.g. "tiersync:".
	KeyPrefix string
}

// NewRedisStore connects to redis and pings it once to fail fast on a bad
// address. The caller owns the returned store and must Close it.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, opts.Addr, err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "tiersync:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Load returns the document stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return data, nil
}

// Save replaces the document stored under key. A redis SET is atomic, so
// the wholesale-replacement contract holds without further work.
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close closes the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
