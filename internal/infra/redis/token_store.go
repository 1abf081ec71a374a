package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
)

const tokenKey = "trivia:token"

// TokenStore keeps the provider session token in Redis so it survives
// restarts and is shared between instances. Open Trivia DB expires tokens
// after six hours of inactivity; the TTL should match.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", domain.ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.client.Set(ctx, tokenKey, token, s.ttl).Err()
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, tokenKey).Err()
}
