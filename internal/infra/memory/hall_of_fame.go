package memory

import (
	"context"
	"sync"

	"movie-trivia-service/internal/domain"
)

// DefaultHallOfFameCapacity applies when no capacity is configured.
const DefaultHallOfFameCapacity = 50

// HallOfFame is a capped list of tournament winners. The oldest entry is
// evicted when a new one would exceed the capacity.
type HallOfFame struct {
	mu       sync.RWMutex
	capacity int
	entries  []domain.HallOfFameEntry // oldest first
}

func NewHallOfFame(capacity int) *HallOfFame {
	if capacity <= 0 {
		capacity = DefaultHallOfFameCapacity
	}
	return &HallOfFame{capacity: capacity}
}

func (h *HallOfFame) Append(_ context.Context, entry domain.HallOfFameEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	return nil
}

func (h *HallOfFame) List(_ context.Context, limit int) ([]domain.HallOfFameEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make([]domain.HallOfFameEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}
