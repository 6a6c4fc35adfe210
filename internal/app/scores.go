package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"movie-trivia-service/internal/domain"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	anonymousName           = "Anon"
)

// ScoreGateway keeps the best score per player and mode.
//
// Submit reads and then conditionally writes without a transaction. Two
// concurrent submissions for the same player may race and the lower one can
// win; one player plays one session at a time, so this is accepted.
type ScoreGateway struct {
	scores ScoreRepository
	now    func() time.Time
}

func NewScoreGateway(scores ScoreRepository) *ScoreGateway {
	return &ScoreGateway{scores: scores, now: time.Now}
}

// Submit stores score when the player has no record in mode or beats it.
// It reports whether a write happened.
func (g *ScoreGateway) Submit(ctx context.Context, mode domain.Mode, playerID string, score int) (bool, error) {
	if !mode.Scored() {
		return false, domain.ErrUnknownMode
	}
	if playerID == "" {
		return false, fmt.Errorf("%w: missing player", domain.ErrInvalidInput)
	}

	best, err := g.scores.Best(ctx, playerID, mode)
	switch {
	case err == nil:
		if score <= best.Score {
			return false, nil
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return false, fmt.Errorf("read best score: %w", err)
	}

	record := domain.ScoreRecord{PlayerID: playerID, Mode: mode, Score: score, PlayedAt: g.now().UTC()}
	if err := g.scores.Upsert(ctx, record); err != nil {
		return false, fmt.Errorf("write best score: %w", err)
	}
	return true, nil
}

// Best returns the stored best of a player.
func (g *ScoreGateway) Best(ctx context.Context, mode domain.Mode, playerID string) (domain.ScoreRecord, error) {
	return g.scores.Best(ctx, playerID, mode)
}

// LeaderboardReader serves top records decorated with profile data.
type LeaderboardReader struct {
	scores   ScoreRepository
	profiles ProfileRepository
}

func NewLeaderboardReader(scores ScoreRepository, profiles ProfileRepository) *LeaderboardReader {
	return &LeaderboardReader{scores: scores, profiles: profiles}
}

// Top returns at most limit entries, one per player, ordered by score and
// then recency. Each call reads fresh data.
func (l *LeaderboardReader) Top(ctx context.Context, mode domain.Mode, limit int) ([]domain.LeaderboardEntry, error) {
	if !mode.Scored() {
		return nil, domain.ErrUnknownMode
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	// overfetch so duplicates cannot starve the page
	rows, err := l.scores.Top(ctx, mode, limit*2)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	rows = RankRecords(rows, limit)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.PlayerID)
	}
	profiles := map[string]domain.Profile{}
	if l.profiles != nil && len(ids) > 0 {
		if profiles, err = l.profiles.GetMany(ctx, ids); err != nil {
			return nil, fmt.Errorf("read profiles: %w", err)
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		name := anonymousName
		avatar := ""
		if p, ok := profiles[r.PlayerID]; ok {
			if p.DisplayName != "" {
				name = p.DisplayName
			}
			avatar = p.AvatarURL
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    r.PlayerID,
			DisplayName: name,
			AvatarURL:   avatar,
			Score:       r.Score,
			PlayedAt:    r.PlayedAt,
		})
	}
	return entries, nil
}

// RankRecords orders rows by score desc then played-at desc, keeps the first
// row of each player and truncates to limit.
func RankRecords(rows []domain.ScoreRecord, limit int) []domain.ScoreRecord {
	sorted := append([]domain.ScoreRecord(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PlayedAt.After(sorted[j].PlayedAt)
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]domain.ScoreRecord, 0, min(limit, len(sorted)))
	for _, r := range sorted {
		if _, dup := seen[r.PlayerID]; dup {
			continue
		}
		seen[r.PlayerID] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}
