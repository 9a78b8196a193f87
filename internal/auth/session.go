package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// RedisSessionStore keeps one live session per user. Starting a new session
// invalidates the previous one so every sign-in resets the timer.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	userSessionKey := UserSessionKeyPrefix + userID

	if previous, err := s.client.Get(ctx, userSessionKey).Result(); err == nil && previous != "" {
		s.client.Del(ctx, SessionKeyPrefix+previous)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sessionID, userID, ttl)
	pipe.Set(ctx, userSessionKey, sessionID, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Lookup(ctx context.Context, sessionID string) (string, bool, error) {
	userID, err := s.client.Get(ctx, SessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	sessionKey := SessionKeyPrefix + sessionID

	if userID, err := s.client.Get(ctx, sessionKey).Result(); err == nil && userID != "" {
		userSessionKey := UserSessionKeyPrefix + userID
		if current, err := s.client.Get(ctx, userSessionKey).Result(); err == nil && current == sessionID {
			s.client.Del(ctx, userSessionKey)
		}
	}
	return s.client.Del(ctx, sessionKey).Err()
}
