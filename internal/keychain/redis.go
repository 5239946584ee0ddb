// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"smarteco/cli/internal/apperr"
)

const (
	redisDialTimeout = 3 * time.Second
	redisIOTimeout   = 2 * time.Second
)

// redisCmdable is the part of the go-redis client the store uses.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps the token in Redis under "smarteco:userToken".
type RedisStore struct {
	client redisCmdable
	key    string
	closer func() error
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redisCmdable) *RedisStore {
	return &RedisStore{client: client, key: ServiceName + ":" + KeyToken}
}

// OpenRedis connects to redisURL and verifies it with a PING.
func OpenRedis(ctx context.Context, redisURL string, log *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperr.Wrap(apperr.KindStorage, "Unable to reach the Redis token store", err)
	}
	log.Debug("redis token store connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))

	s := NewRedisStore(client)
	s.closer = client.Close
	return s, nil
}

// Name reports the backend in use.
func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "Unable to read the saved session", err)
	}
	return token, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return apperr.New(apperr.KindInvalid, "refusing to store an empty token")
	}
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, "Unable to save the session", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, "Unable to clear the saved session", err)
	}
	return nil
}

// Close releases the connection pool when the store opened it.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
