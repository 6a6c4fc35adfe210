package memory

import (
	"context"
	"sort"
	"sync"

	"movie-trivia-service/internal/domain"
)

type scoreKey struct {
	playerID string
	mode     domain.Mode
}

// ScoreStore keeps one best record per player and mode.
type ScoreStore struct {
	mu     sync.RWMutex
	scores map[scoreKey]domain.ScoreRecord
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{scores: make(map[scoreKey]domain.ScoreRecord)}
}

func (s *ScoreStore) Best(_ context.Context, playerID string, mode domain.Mode) (domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.scores[scoreKey{playerID, mode}]
	if !ok {
		return domain.ScoreRecord{}, domain.ErrNotFound
	}
	return record, nil
}

func (s *ScoreStore) Upsert(_ context.Context, record domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey{record.PlayerID, record.Mode}] = record
	return nil
}

func (s *ScoreStore) Top(_ context.Context, mode domain.Mode, limit int) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	out := make([]domain.ScoreRecord, 0, len(s.scores))
	for k, record := range s.scores {
		if k.mode == mode {
			out = append(out, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayedAt.After(out[j].PlayedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
