// Package session provides Redis-backed storage for console sessions.
//
// The console never persists anything itself; the only server-side state is the
// mapping from an issued access/refresh token to the upstream bearer token and
// identity claims it represents, held in Redis with a TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Data holds everything stored for one session.
type Data struct {
	UpstreamToken string    `json:"upstream_token"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
}

var ErrNotFound = errors.New("session not found or expired")

// RedisStore implements session storage using Redis.
type RedisStore struct {
	client        *redis.Client
	accessPrefix  string
	refreshPrefix string
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:        client,
		accessPrefix:  "sess:",
		refreshPrefix: "refresh:",
	}
}

// SaveSession stores an access session keyed by token ID.
func (s *RedisStore) SaveSession(ctx context.Context, jti string, data Data, ttl time.Duration) error {
	return s.save(ctx, s.accessPrefix+jti, data, ttl)
}

// LookupSession retrieves an access session by token ID.
func (s *RedisStore) LookupSession(ctx context.Context, jti string) (Data, error) {
	return s.lookup(ctx, s.accessPrefix+jti)
}

// RevokeSession deletes an access session.
func (s *RedisStore) RevokeSession(ctx context.Context, jti string) error {
	return s.revoke(ctx, s.accessPrefix+jti)
}

// SaveRefresh stores a refresh session keyed by token hash.
func (s *RedisStore) SaveRefresh(ctx context.Context, tokenHash string, data Data, ttl time.Duration) error {
	return s.save(ctx, s.refreshPrefix+tokenHash, data, ttl)
}

// LookupRefresh retrieves a refresh session by token hash.
func (s *RedisStore) LookupRefresh(ctx context.Context, tokenHash string) (Data, error) {
	return s.lookup(ctx, s.refreshPrefix+tokenHash)
}

// RevokeRefresh deletes a refresh session.
func (s *RedisStore) RevokeRefresh(ctx context.Context, tokenHash string) error {
	return s.revoke(ctx, s.refreshPrefix+tokenHash)
}

func (s *RedisStore) save(ctx context.Context, key string, data Data, ttl time.Duration) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) lookup(ctx context.Context, key string) (Data, error) {
	jsonData, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return Data{}, ErrNotFound
	}
	if err != nil {
		return Data{}, fmt.Errorf("lookup session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return Data{}, fmt.Errorf("unmarshal session data: %w", err)
	}
	return data, nil
}

func (s *RedisStore) revoke(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
