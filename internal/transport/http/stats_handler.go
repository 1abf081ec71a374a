package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"trivia-quiz-service/internal/domain"
)

// PhaseCounter reports live session counts per phase (the memory registry).
type PhaseCounter interface {
	Counts() map[domain.Phase]int
}

// ResultReader loads recently archived game results. Optional; nil when no
// archive is configured.
type ResultReader interface {
	RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error)
}

// StatsHandler exposes a small operational view: how many sessions are live
// in each phase, and the latest finished games when an archive is wired.
type StatsHandler struct {
	sessions PhaseCounter
	results  ResultReader
	logger   *zap.Logger
}

func NewStatsHandler(sessions PhaseCounter, results ResultReader, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{sessions: sessions, results: results, logger: logger}
}

type statsResponse struct {
	Sessions      map[domain.Phase]int `json:"sessions"`
	RecentResults []domain.GameResult  `json:"recentResults,omitempty"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Sessions: h.sessions.Counts()}
	if h.results != nil {
		results, err := h.results.RecentResults(r.Context(), 20)
		if err != nil {
			h.logger.Warn("recent results unavailable", zap.Error(err))
		} else {
			resp.RecentResults = results
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("stats encode failed", zap.Error(err))
	}
}
