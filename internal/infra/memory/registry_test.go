package memory

import (
	"testing"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	session := app.NewSession(app.SessionConfig{})

	registry.Register(session)
	counts := registry.Counts()
	if counts[domain.PhaseIdle] != 1 {
		t.Fatalf("expected one idle session, got %+v", counts)
	}

	registry.Remove(session.ID())
	if counts := registry.Counts(); len(counts) != 0 {
		t.Fatalf("expected empty registry, got %+v", counts)
	}
}
