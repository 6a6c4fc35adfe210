package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"movie-trivia-service/internal/domain"
)

const defaultHallOfFameCapacity = 50

// HallOfFame keeps the newest tournament winners in a capped list at
// trivia:hall_of_fame (LPUSH + LTRIM).
type HallOfFame struct {
	client   *redis.Client
	capacity int
}

func NewHallOfFame(client *redis.Client, capacity int) *HallOfFame {
	if capacity <= 0 {
		capacity = defaultHallOfFameCapacity
	}
	return &HallOfFame{client: client, capacity: capacity}
}

func (h *HallOfFame) Append(ctx context.Context, entry domain.HallOfFameEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode hall of fame entry: %w", err)
	}
	key := Key("hall_of_fame")
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, int64(h.capacity-1))
		return nil
	})
	return err
}

func (h *HallOfFame) List(ctx context.Context, limit int) ([]domain.HallOfFameEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	rows, err := h.client.LRange(ctx, Key("hall_of_fame"), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.HallOfFameEntry, 0, len(rows))
	for _, row := range rows {
		var entry domain.HallOfFameEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			return nil, fmt.Errorf("decode hall of fame entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}
