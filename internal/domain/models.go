package domain

import "time"

// Phase is the session's current lifecycle stage.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseError    Phase = "error"
	PhaseActive   Phase = "active"
	PhaseRevealed Phase = "revealed"
)

// Question is one multiple-choice trivia item as delivered by the source.
// Text fields keep the provider's HTML escaping; decoding happens at the
// presentation boundary so stored strings stay comparable.
type Question struct {
	Text             string   `json:"question"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// Batch is one fetched set of questions for a single game. ID is the batch
// identity; derived data (answer orderings) is keyed on it, and every fetch
// mints a fresh ID even if the provider repeats content.
type Batch struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

// Selection holds the answer, if any, chosen for one question. The explicit
// Chosen flag keeps "no selection" distinct from any real answer string.
type Selection struct {
	Answer string `json:"answer"`
	Chosen bool   `json:"chosen"`
}

// Verdict classifies a single answer choice after reveal.
type Verdict string

const (
	VerdictCorrect             Verdict = "correct"
	VerdictIncorrectSelected   Verdict = "incorrectlySelected"
	VerdictIncorrectUnselected Verdict = "incorrectlyUnselected"
)

// GameResult records one finished game for the archive.
type GameResult struct {
	SessionID  string    `json:"sessionId"`
	BatchID    string    `json:"batchId"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Category is one provider category usable as a fetch filter.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
