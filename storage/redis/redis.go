// Package redis provides Redis-backed implementations of the session
// secondary storage and rate limit storage contracts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lanternsoft/authbridge/core"
)

// Options holds Redis connection settings.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SessionStore implements core.SecondaryStorage on Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(opts *Options) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "authbridge:session:"
	}
	return &SessionStore{client: client, prefix: prefix}, nil
}

// Get retrieves a session by key. A missing or expired key yields nil.
func (s *SessionStore) Get(ctx context.Context, key string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("redis unmarshal session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, nil
	}
	return &session, nil
}

// Set stores a session with a TTL.
func (s *SessionStore) Set(ctx context.Context, key string, session *core.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// RateLimiter implements core.RateLimitStorage on Redis using a counter
// with a window TTL.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter connects to Redis and verifies the connection.
func NewRateLimiter(opts *Options) (*RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "authbridge:ratelimit:"
	}
	return &RateLimiter{client: client, prefix: prefix}, nil
}

// Allow increments the counter for the key and reports whether it is
// within the limit. The window TTL is set on first increment.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	full := r.prefix + key

	count, err := r.client.Incr(ctx, full).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, full, window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// Reset clears the counter for the key.
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *RateLimiter) Close() error {
	return r.client.Close()
}
