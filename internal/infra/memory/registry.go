package memory

import (
	"sync"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// Registry tracks live sessions so the stats endpoint can report on them.
// Sessions are removed when their connection closes; nothing here outlives
// the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*app.Session),
	}
}

func (r *Registry) Register(session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Counts reports the number of live sessions per phase.
func (r *Registry) Counts() map[domain.Phase]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Phase]int)
	for _, session := range r.sessions {
		counts[session.Phase()]++
	}
	return counts
}
