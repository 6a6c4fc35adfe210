package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"movie-trivia-service/internal/domain"
)

// ScoreStore persists best scores in the scores table, one row per player and mode.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) Best(ctx context.Context, playerID string, mode domain.Mode) (domain.ScoreRecord, error) {
	record := domain.ScoreRecord{PlayerID: playerID, Mode: mode}
	err := s.pool.QueryRow(ctx,
		`SELECT score, played_at FROM scores WHERE player_id=$1 AND mode=$2`,
		playerID, string(mode),
	).Scan(&record.Score, &record.PlayedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("load score: %w", err)
	}
	return record, nil
}

func (s *ScoreStore) Upsert(ctx context.Context, record domain.ScoreRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scores (player_id, mode, score, played_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (player_id, mode) DO UPDATE SET score=EXCLUDED.score, played_at=EXCLUDED.played_at`,
		record.PlayerID, string(record.Mode), record.Score, record.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *ScoreStore) Top(ctx context.Context, mode domain.Mode, limit int) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, score, played_at FROM scores WHERE mode=$1
		 ORDER BY score DESC, played_at DESC LIMIT $2`,
		string(mode), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScoreRecord, 0, limit)
	for rows.Next() {
		record := domain.ScoreRecord{Mode: mode}
		if err := rows.Scan(&record.PlayerID, &record.Score, &record.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
