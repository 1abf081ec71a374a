package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/domain"
)

// DefaultQuestionCount is the batch size requested from the source.
const DefaultQuestionCount = 5

// QuestionSource fetches a batch of trivia questions (Open Trivia DB, stubs in tests).
type QuestionSource interface {
	FetchBatch(ctx context.Context, count int) (domain.Batch, error)
}

// ResultSink receives finished game results (Postgres archive, in-memory store).
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
}

// SessionConfig wires a session's collaborators. Zero values get sane defaults.
type SessionConfig struct {
	Source        QuestionSource
	Results       ResultSink
	Randomizer    *Randomizer
	QuestionCount int
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Session owns the state of one quiz game: the current phase, the installed
// question batch, and the per-question selections. All mutation funnels
// through the operations below; the phase guards make illegal transitions
// unrepresentable rather than racy.
type Session struct {
	id         string
	source     QuestionSource
	results    ResultSink
	randomizer *Randomizer
	count      int
	logger     *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	phase      domain.Phase
	batch      *domain.Batch
	orderings  [][]string
	selections []domain.Selection
	errMsg     string
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	if cfg.Randomizer == nil {
		cfg.Randomizer = NewRandomizer()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{
		id:         uuid.NewString(),
		source:     cfg.Source,
		results:    cfg.Results,
		randomizer: cfg.Randomizer,
		count:      cfg.QuestionCount,
		logger:     cfg.Logger,
		now:        cfg.Clock,
		phase:      domain.PhaseIdle,
	}
}

// ID returns the session's identity.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start fetches a fresh batch. Valid from Idle, Error (retry) and Revealed
// (play again). While a fetch is in flight the session is in Loading and a
// second Start is refused, so two completions can never race on the batch.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.phase {
	case domain.PhaseLoading:
		s.mu.Unlock()
		return domain.ErrFetchInFlight
	case domain.PhaseIdle, domain.PhaseError, domain.PhaseRevealed:
	default:
		s.mu.Unlock()
		return domain.ErrInvalidPhase
	}
	if s.batch != nil {
		s.randomizer.Forget(s.batch.ID)
	}
	s.phase = domain.PhaseLoading
	s.batch = nil
	s.orderings = nil
	s.selections = nil
	s.errMsg = ""
	s.mu.Unlock()

	// The single suspension point. The lock is released for its duration;
	// the Loading phase keeps every other operation out in the meantime.
	batch, err := s.source.FetchBatch(ctx, s.count)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = domain.PhaseError
		s.errMsg = err.Error()
		s.logger.Warn("question fetch failed", zap.String("session", s.id), zap.Error(err))
		return nil
	}
	s.batch = &batch
	s.orderings = s.randomizer.Orderings(&batch)
	s.selections = make([]domain.Selection, len(batch.Questions))
	s.phase = domain.PhaseActive
	s.logger.Info("batch installed",
		zap.String("session", s.id),
		zap.String("batch", batch.ID),
		zap.Int("questions", len(batch.Questions)))
	return nil
}

// SelectAnswer records the answer for one question, overwriting any previous
// choice. Out-of-range indexes, answers that are not among the question's
// choices, and any phase other than Active are silent no-ops.
func (s *Session) SelectAnswer(questionIndex int, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive {
		return
	}
	if questionIndex < 0 || questionIndex >= len(s.selections) {
		return
	}
	if !containsAnswer(s.orderings[questionIndex], answer) {
		return
	}
	s.selections[questionIndex] = domain.Selection{Answer: answer, Chosen: true}
}

// Reveal locks selections and unlocks the score view. It changes only the
// phase; the score stays derived. The finished result is handed to the
// archive best-effort so a slow or failing sink never blocks the game.
func (s *Session) Reveal(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return domain.ErrInvalidPhase
	}
	s.phase = domain.PhaseRevealed
	result := domain.GameResult{
		SessionID:  s.id,
		BatchID:    s.batch.ID,
		Score:      s.scoreLocked(),
		Total:      len(s.batch.Questions),
		FinishedAt: s.now(),
	}
	s.mu.Unlock()

	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			s.logger.Warn("result archive failed", zap.String("session", s.id), zap.Error(err))
		}
	}
	return nil
}

// Reset returns a revealed session to Idle without fetching.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseRevealed {
		return domain.ErrInvalidPhase
	}
	if s.batch != nil {
		s.randomizer.Forget(s.batch.ID)
	}
	s.phase = domain.PhaseIdle
	s.batch = nil
	s.orderings = nil
	s.selections = nil
	s.errMsg = ""
	return nil
}

// Close releases the session's hold on the shared randomizer. The transport
// calls it when the connection goes away; a game abandoned while Active or
// Revealed would otherwise pin its memo entry for the life of the process.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch != nil {
		s.randomizer.Forget(s.batch.ID)
		s.batch = nil
	}
	s.orderings = nil
	s.selections = nil
}

// NewGame is the play-again affordance: reset and immediately re-fetch.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.Reset(); err != nil {
		return err
	}
	return s.Start(ctx)
}

// Score counts the questions whose selection equals the correct answer.
// It is recomputed from current state on every call, never stored.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() int {
	if s.batch == nil {
		return 0
	}
	score := 0
	for i, q := range s.batch.Questions {
		if s.selections[i].Chosen && s.selections[i].Answer == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// QuestionView is the per-question slice of a snapshot. Answers carry the
// memoized ordering; Verdicts is parallel to Answers and populated only
// after reveal.
type QuestionView struct {
	Text       string           `json:"text"`
	Category   string           `json:"category,omitempty"`
	Difficulty string           `json:"difficulty,omitempty"`
	Answers    []string         `json:"answers"`
	Selection  domain.Selection `json:"selection"`
	Verdicts   []domain.Verdict `json:"verdicts,omitempty"`
}

// Snapshot is a read-only view of the session for the transport layer.
// ScoreLine is the ready-made score readout, present only after reveal.
type Snapshot struct {
	SessionID string         `json:"sessionId"`
	Phase     domain.Phase   `json:"phase"`
	Error     string         `json:"error,omitempty"`
	Questions []QuestionView `json:"questions,omitempty"`
	Score     int            `json:"score"`
	Total     int            `json:"total"`
	ScoreLine string         `json:"scoreLine,omitempty"`
}

// Snapshot captures phase, questions with their stable answer ordering,
// selections and, post-reveal, per-answer verdicts.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Error:     s.errMsg,
		Score:     s.scoreLocked(),
	}
	if s.batch == nil {
		return snap
	}
	snap.Total = len(s.batch.Questions)
	snap.Questions = make([]QuestionView, len(s.batch.Questions))
	for i, q := range s.batch.Questions {
		view := QuestionView{
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Answers:    append([]string(nil), s.orderings[i]...),
			Selection:  s.selections[i],
		}
		if s.phase == domain.PhaseRevealed {
			view.Verdicts = classify(s.orderings[i], q.CorrectAnswer, s.selections[i])
		}
		snap.Questions[i] = view
	}
	if s.phase == domain.PhaseRevealed {
		snap.ScoreLine = fmt.Sprintf("You scored %d/%d correct answers", snap.Score, snap.Total)
	}
	return snap
}

// classify maps each offered answer to its post-reveal verdict: the ground
// truth is always "correct", a wrong pick is "incorrectlySelected", and the
// remaining wrong answers are "incorrectlyUnselected".
func classify(answers []string, correct string, sel domain.Selection) []domain.Verdict {
	verdicts := make([]domain.Verdict, len(answers))
	for i, answer := range answers {
		switch {
		case answer == correct:
			verdicts[i] = domain.VerdictCorrect
		case sel.Chosen && sel.Answer == answer:
			verdicts[i] = domain.VerdictIncorrectSelected
		default:
			verdicts[i] = domain.VerdictIncorrectUnselected
		}
	}
	return verdicts
}

func containsAnswer(answers []string, answer string) bool {
	for _, a := range answers {
		if a == answer {
			return true
		}
	}
	return false
}
