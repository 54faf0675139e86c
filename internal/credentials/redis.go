package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// RedisStore keeps credentials under fixed keys so several operator
// sessions (CLI and dashboard server) share one login:
//
//	{prefix}:account_id
//	{prefix}:token
//	{prefix}:base_url
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keys() (account, token, baseURL string) {
	return s.prefix + ":account_id", s.prefix + ":token", s.prefix + ":base_url"
}

func (s *RedisStore) Load(ctx context.Context) (api.Credentials, error) {
	accountKey, tokenKey, baseKey := s.keys()
	vals, err := s.client.MGet(ctx, accountKey, tokenKey, baseKey).Result()
	if err != nil {
		return api.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	str := func(v any) string {
		s, _ := v.(string)
		return s
	}
	return api.Credentials{
		AccountID: str(vals[0]),
		Token:     str(vals[1]),
		BaseURL:   str(vals[2]),
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, creds api.Credentials) error {
	accountKey, tokenKey, baseKey := s.keys()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, accountKey, creds.AccountID, 0)
		pipe.Set(ctx, tokenKey, creds.Token, 0)
		if creds.BaseURL != "" {
			pipe.Set(ctx, baseKey, creds.BaseURL, 0)
		} else {
			pipe.Del(ctx, baseKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	accountKey, tokenKey, baseKey := s.keys()
	if err := s.client.Del(ctx, accountKey, tokenKey, baseKey).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
