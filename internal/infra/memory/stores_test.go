package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"movie-trivia-service/internal/domain"
)

func TestScoreStoreTopOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []domain.ScoreRecord{
		{PlayerID: "a", Mode: domain.ModeVersus, Score: 5, PlayedAt: base},
		{PlayerID: "b", Mode: domain.ModeVersus, Score: 7, PlayedAt: base},
		{PlayerID: "c", Mode: domain.ModeVersus, Score: 5, PlayedAt: base.Add(time.Hour)},
		{PlayerID: "d", Mode: domain.ModeBlur, Score: 20, PlayedAt: base},
	}
	for _, r := range records {
		if err := store.Upsert(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	top, err := store.Top(ctx, domain.ModeVersus, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	got := ""
	for _, r := range top {
		got += r.PlayerID
	}
	if got != "bca" {
		t.Fatalf("expected order bca, got %s", got)
	}

	if _, err := store.Best(ctx, "a", domain.ModeBlur); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountStoreRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	if err := store.Create(ctx, domain.Account{ID: "1", Email: "a@b.co"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, domain.Account{ID: "2", Email: "a@b.co"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	acc, err := store.ByEmail(ctx, "a@b.co")
	if err != nil || acc.ID != "1" {
		t.Fatalf("by email: %+v %v", acc, err)
	}
}

func TestProfileStoreGetManySkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	_ = store.Upsert(ctx, domain.Profile{PlayerID: "p1", DisplayName: "Ana"})

	got, err := store.GetMany(ctx, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 1 || got["p1"].DisplayName != "Ana" {
		t.Fatalf("unexpected profiles: %+v", got)
	}
}

func TestHallOfFameEvictsOldest(t *testing.T) {
	ctx := context.Background()
	hall := NewHallOfFame(3)
	for i := 0; i < 5; i++ {
		if err := hall.Append(ctx, domain.HallOfFameEntry{SessionID: fmt.Sprint(i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	list, err := hall.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected capacity 3, got %d", len(list))
	}
	if list[0].SessionID != "4" || list[2].SessionID != "2" {
		t.Fatalf("expected newest first and oldest evicted, got %+v", list)
	}

	limited, _ := hall.List(ctx, 1)
	if len(limited) != 1 || limited[0].SessionID != "4" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}
