package memory

import (
	"context"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// TokenStore keeps the provider session token in process memory. Used when
// Redis is not configured; the token then lives as long as the server does.
type TokenStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", domain.ErrNoToken
	}
	return s.token, nil
}

func (s *TokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

func (s *TokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}
