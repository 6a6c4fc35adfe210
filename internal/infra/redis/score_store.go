package redis

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"movie-trivia-service/internal/domain"
)

// ScoreStore keeps best scores in one sorted set per mode, with the time of
// each record in a companion hash:
//
//	ZADD trivia:scores:{mode} {score} {playerID}
//	HSET trivia:scores:{mode}:played {playerID} {RFC3339 time}
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Best(ctx context.Context, playerID string, mode domain.Mode) (domain.ScoreRecord, error) {
	score, err := s.client.ZScore(ctx, scoresKey(mode), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ScoreRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	record := domain.ScoreRecord{PlayerID: playerID, Mode: mode, Score: int(score)}
	if raw, err := s.client.HGet(ctx, playedKey(mode), playerID).Result(); err == nil {
		record.PlayedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return record, nil
}

func (s *ScoreStore) Upsert(ctx context.Context, record domain.ScoreRecord) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, scoresKey(record.Mode), redis.Z{Score: float64(record.Score), Member: record.PlayerID})
		pipe.HSet(ctx, playedKey(record.Mode), record.PlayerID, record.PlayedAt.UTC().Format(time.RFC3339Nano))
		return nil
	})
	return err
}

func (s *ScoreStore) Top(ctx context.Context, mode domain.Mode, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := s.client.ZRevRangeWithScores(ctx, scoresKey(mode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []domain.ScoreRecord{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Member.(string))
	}
	played, err := s.client.HMGet(ctx, playedKey(mode), ids...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScoreRecord, 0, len(members))
	for i, m := range members {
		record := domain.ScoreRecord{PlayerID: ids[i], Mode: mode, Score: int(m.Score)}
		if raw, ok := played[i].(string); ok {
			record.PlayedAt, _ = time.Parse(time.RFC3339Nano, raw)
		}
		out = append(out, record)
	}
	// sorted sets order equal scores by member; recency breaks ties here
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayedAt.After(out[j].PlayedAt)
	})
	return out, nil
}

func scoresKey(mode domain.Mode) string { return Key("scores", string(mode)) }

func playedKey(mode domain.Mode) string { return Key("scores", string(mode), "played") }
