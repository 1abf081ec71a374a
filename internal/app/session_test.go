package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

func TestStartInstallsBatch(t *testing.T) {
	ctx := context.Background()
	session := app.NewSession(app.SessionConfig{Source: &stubSource{}})

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected active phase, got %s", session.Phase())
	}

	snap := session.Snapshot()
	if len(snap.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(snap.Questions))
	}
	for i, q := range snap.Questions {
		if q.Selection.Chosen {
			t.Fatalf("question %d should start unselected", i)
		}
	}
	if session.Score() != 0 {
		t.Fatalf("fresh batch should score 0, got %d", session.Score())
	}
}

func TestScoreAndVerdictsAfterReveal(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{}
	session := app.NewSession(app.SessionConfig{Source: src})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	correct := src.last.Questions[0].CorrectAnswer
	session.SelectAnswer(0, correct)
	if err := session.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if session.Score() != 1 {
		t.Fatalf("expected score 1, got %d", session.Score())
	}

	snap := session.Snapshot()
	for qi, q := range snap.Questions {
		correctSeen := false
		for ai, verdict := range q.Verdicts {
			switch verdict {
			case domain.VerdictCorrect:
				correctSeen = true
				if q.Answers[ai] != src.last.Questions[qi].CorrectAnswer {
					t.Fatalf("question %d: wrong answer marked correct", qi)
				}
			case domain.VerdictIncorrectSelected:
				if qi != 0 {
					t.Fatalf("question %d has incorrectlySelected without a selection", qi)
				}
			}
		}
		if !correctSeen {
			t.Fatalf("question %d: ground truth not classified correct", qi)
		}
	}
	if snap.Questions[0].Selection.Answer != correct {
		t.Fatalf("selection lost on reveal: %+v", snap.Questions[0].Selection)
	}
}

func TestStartFailureSurfacesStatus(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{err: errors.New("trivia source returned status 503")}
	session := app.NewSession(app.SessionConfig{Source: src})

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start should absorb fetch failure, got %v", err)
	}
	if session.Phase() != domain.PhaseError {
		t.Fatalf("expected error phase, got %s", session.Phase())
	}

	snap := session.Snapshot()
	if !strings.Contains(snap.Error, "503") {
		t.Fatalf("expected message containing 503, got %q", snap.Error)
	}
	if len(snap.Questions) != 0 {
		t.Fatalf("no batch should be installed on failure")
	}

	// Retry from Error is the user-initiated recovery path.
	src.err = nil
	if err := session.Start(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected active after retry, got %s", session.Phase())
	}
}

func TestSelectAnswerInvalidInputsAreNoOps(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{}
	session := app.NewSession(app.SessionConfig{Source: src})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	session.SelectAnswer(-1, src.last.Questions[0].CorrectAnswer)
	session.SelectAnswer(5, src.last.Questions[0].CorrectAnswer)
	session.SelectAnswer(0, "never offered")

	for i, q := range session.Snapshot().Questions {
		if q.Selection.Chosen {
			t.Fatalf("question %d selected by invalid input", i)
		}
	}
}

func TestSelectionLockedAfterReveal(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{}
	session := app.NewSession(app.SessionConfig{Source: src})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	session.SelectAnswer(0, src.last.Questions[0].CorrectAnswer)
	if session.Snapshot().Questions[0].Selection.Chosen {
		t.Fatalf("selection must be locked after reveal")
	}
}

func TestRevealIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	session := app.NewSession(app.SessionConfig{Source: &stubSource{}, Results: sink})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	first := session.Snapshot()

	if err := session.Reveal(ctx); err != domain.ErrInvalidPhase {
		t.Fatalf("second reveal should be refused, got %v", err)
	}
	second := session.Snapshot()
	if first.Phase != second.Phase || first.Score != second.Score {
		t.Fatalf("second reveal changed observable state")
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected one archived result, got %d", len(sink.results))
	}
	if sink.results[0].Total != 5 {
		t.Fatalf("archived total should be 5, got %d", sink.results[0].Total)
	}
}

func TestNewGameFetchesFreshBatch(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{}
	session := app.NewSession(app.SessionConfig{Source: src})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	firstBatch := src.last.ID
	session.SelectAnswer(0, src.last.Questions[0].CorrectAnswer)
	if err := session.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	if err := session.NewGame(ctx); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if session.Phase() != domain.PhaseActive {
		t.Fatalf("expected active after new game, got %s", session.Phase())
	}
	if src.last.ID == firstBatch {
		t.Fatalf("new game reused the prior batch")
	}
	for i, q := range session.Snapshot().Questions {
		if q.Selection.Chosen {
			t.Fatalf("question %d carried a stale selection into the new game", i)
		}
	}
}

func TestStartRefusedWhileLoading(t *testing.T) {
	ctx := context.Background()
	src := &blockingSource{release: make(chan struct{}), started: make(chan struct{})}
	session := app.NewSession(app.SessionConfig{Source: src})

	done := make(chan error, 1)
	go func() { done <- session.Start(ctx) }()
	<-src.started

	if err := session.Start(ctx); err != domain.ErrFetchInFlight {
		t.Fatalf("expected fetch-in-flight refusal, got %v", err)
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first start: %v", err)
	}
}

func TestStartRefusedWhileActive(t *testing.T) {
	ctx := context.Background()
	session := app.NewSession(app.SessionConfig{Source: &stubSource{}})
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Start(ctx); err != domain.ErrInvalidPhase {
		t.Fatalf("expected invalid phase, got %v", err)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	session := app.NewSession(app.SessionConfig{Source: &stubSource{}})

	if err := session.Reset(); err != domain.ErrInvalidPhase {
		t.Fatalf("reset before reveal should be refused, got %v", err)
	}
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Reveal(ctx); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := session.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := session.Snapshot()
	if snap.Phase != domain.PhaseIdle || len(snap.Questions) != 0 {
		t.Fatalf("expected idle with no batch, got %+v", snap)
	}
}

// stubSource mints a fresh five-question batch per fetch.
type stubSource struct {
	err  error
	last domain.Batch
}

func (s *stubSource) FetchBatch(_ context.Context, count int) (domain.Batch, error) {
	if s.err != nil {
		return domain.Batch{}, s.err
	}
	batch := domain.Batch{ID: uuid.NewString(), FetchedAt: time.Now()}
	for i := 0; i < count; i++ {
		batch.Questions = append(batch.Questions, domain.Question{
			Text:             fmt.Sprintf("Question %d of %s?", i, batch.ID[:8]),
			CorrectAnswer:    fmt.Sprintf("right-%d", i),
			IncorrectAnswers: []string{"wrong-a", "wrong-b", "wrong-c"},
		})
	}
	s.last = batch
	return batch, nil
}

// blockingSource parks the fetch until released, to pin down Loading-phase behavior.
type blockingSource struct {
	release chan struct{}
	started chan struct{}
	inner   stubSource
}

func (b *blockingSource) FetchBatch(ctx context.Context, count int) (domain.Batch, error) {
	close(b.started)
	<-b.release
	return b.inner.FetchBatch(ctx, count)
}

type recordingSink struct {
	results []domain.GameResult
}

func (r *recordingSink) SaveResult(_ context.Context, result domain.GameResult) error {
	r.results = append(r.results, result)
	return nil
}
