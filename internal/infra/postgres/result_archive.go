package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz-service/internal/domain"
)

// ResultArchive records finished games in Postgres. Only final results are
// written; live session state never touches the database.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) SaveResult(ctx context.Context, result domain.GameResult) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO game_results (session_id, batch_id, score, total, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		result.SessionID, result.BatchID, result.Score, result.Total, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("archive game result: %w", err)
	}
	return nil
}

// RecentResults returns the most recently finished games, newest first.
func (a *ResultArchive) RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT session_id, batch_id, score, total, finished_at FROM game_results ORDER BY finished_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("load recent results: %w", err)
	}
	defer rows.Close()

	var results []domain.GameResult
	for rows.Next() {
		var r domain.GameResult
		if err := rows.Scan(&r.SessionID, &r.BatchID, &r.Score, &r.Total, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
