package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"movie-trivia-service/internal/domain"
)

// ProfileStore reads and writes the profiles table.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Get(ctx context.Context, playerID string) (domain.Profile, error) {
	p := domain.Profile{PlayerID: playerID}
	err := s.pool.QueryRow(ctx,
		`SELECT display_name, avatar_url FROM profiles WHERE player_id=$1`, playerID,
	).Scan(&p.DisplayName, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetMany(ctx context.Context, playerIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, display_name, avatar_url FROM profiles WHERE player_id = ANY($1)`, playerIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.PlayerID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.PlayerID] = p
	}
	return out, rows.Err()
}

func (s *ProfileStore) Upsert(ctx context.Context, p domain.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (player_id, display_name, avatar_url, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (player_id) DO UPDATE SET display_name=EXCLUDED.display_name, avatar_url=EXCLUDED.avatar_url, updated_at=now()`,
		p.PlayerID, p.DisplayName, p.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
