package memory

import (
	"context"
	"testing"

	"trivia-quiz-service/internal/domain"
)

func TestTokenStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()

	if _, err := store.Token(ctx); err != domain.ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if err := store.Save(ctx, "tok-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	token, err := store.Token(ctx)
	if err != nil || token != "tok-1" {
		t.Fatalf("expected tok-1, got %q %v", token, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Token(ctx); err != domain.ErrNoToken {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}
