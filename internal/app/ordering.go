package app

import (
	"math/rand"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// Randomizer computes the display order of each question's answer choices and
// memoizes it per batch, so re-reads and unrelated state changes never shuffle
// an order the user is already looking at. Entries live exactly as long as the
// batch they belong to; the owning session forgets them on replace or reset.
type Randomizer struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	memo map[string][][]string
}

func NewRandomizer() *Randomizer {
	return NewRandomizerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewRandomizerWithSource allows deterministic draws in tests.
func NewRandomizerWithSource(src rand.Source) *Randomizer {
	return &Randomizer{
		rnd:  rand.New(src),
		memo: make(map[string][][]string),
	}
}

// Orderings returns one answer ordering per question, computed on first sight
// of the batch ID and returned verbatim afterwards.
func (r *Randomizer) Orderings(batch *domain.Batch) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.memo[batch.ID]; ok {
		return cached
	}
	orderings := make([][]string, len(batch.Questions))
	for i, q := range batch.Questions {
		orderings[i] = r.orderAnswers(q)
	}
	r.memo[batch.ID] = orderings
	return orderings
}

// Forget drops the memo entry for a batch that is no longer displayed.
func (r *Randomizer) Forget(batchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memo, batchID)
}

// orderAnswers inserts the correct answer at a uniformly random position
// among the incorrect answers, which keep their source order. This matches
// the observed behavior of the game (only the correct answer's slot is
// randomized); it is deliberately not a full Fisher-Yates shuffle.
func (r *Randomizer) orderAnswers(q domain.Question) []string {
	pos := r.rnd.Intn(len(q.IncorrectAnswers) + 1)
	out := make([]string, 0, len(q.IncorrectAnswers)+1)
	out = append(out, q.IncorrectAnswers[:pos]...)
	out = append(out, q.CorrectAnswer)
	out = append(out, q.IncorrectAnswers[pos:]...)
	return out
}
