package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"movie-trivia-service/internal/app"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/infra/memory"
)

func TestScoreGatewayKeepsBest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewScoreStore()
	gateway := app.NewScoreGateway(store)

	cases := []struct {
		score int
		wrote bool
	}{
		{5, true},
		{3, false},
		{5, false},
		{8, true},
	}
	for _, tc := range cases {
		wrote, err := gateway.Submit(ctx, domain.ModeVersus, "p1", tc.score)
		if err != nil {
			t.Fatalf("submit %d: %v", tc.score, err)
		}
		if wrote != tc.wrote {
			t.Fatalf("submit %d: expected wrote=%v", tc.score, tc.wrote)
		}
	}
	best, _ := store.Best(ctx, "p1", domain.ModeVersus)
	if best.Score != 8 || best.PlayedAt.IsZero() {
		t.Fatalf("unexpected best: %+v", best)
	}

	if _, err := gateway.Submit(ctx, domain.ModeTournament, "p1", 1); !errors.Is(err, domain.ErrUnknownMode) {
		t.Fatalf("expected tournament to be rejected, got %v", err)
	}
	if _, err := gateway.Submit(ctx, domain.ModeVersus, "", 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected missing player to be rejected, got %v", err)
	}
}

func TestLeaderboardJoinsProfiles(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreStore()
	profiles := memory.NewProfileStore()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_ = profiles.Upsert(ctx, domain.Profile{PlayerID: "a", DisplayName: "Ana", AvatarURL: "/avatars/a/avatar.png"})
	_ = scores.Upsert(ctx, domain.ScoreRecord{PlayerID: "a", Mode: domain.ModeBlur, Score: 12, PlayedAt: base})
	_ = scores.Upsert(ctx, domain.ScoreRecord{PlayerID: "b", Mode: domain.ModeBlur, Score: 12, PlayedAt: base.Add(time.Hour)})
	_ = scores.Upsert(ctx, domain.ScoreRecord{PlayerID: "c", Mode: domain.ModeBlur, Score: 20, PlayedAt: base})

	board, err := app.NewLeaderboardReader(scores, profiles).Top(ctx, domain.ModeBlur, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(board))
	}
	if board[0].PlayerID != "c" || board[1].PlayerID != "b" || board[2].PlayerID != "a" {
		t.Fatalf("unexpected order: %+v", board)
	}
	if board[1].DisplayName != "Anon" || board[2].DisplayName != "Ana" || board[2].AvatarURL == "" {
		t.Fatalf("unexpected profile join: %+v", board)
	}
	if board[0].Rank != 1 || board[2].Rank != 3 {
		t.Fatalf("unexpected ranks: %+v", board)
	}

	one, _ := app.NewLeaderboardReader(scores, profiles).Top(ctx, domain.ModeBlur, 1)
	if len(one) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(one))
	}
}

func TestRankRecordsDeduplicatesPlayers(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.ScoreRecord{
		{PlayerID: "a", Score: 4, PlayedAt: base},
		{PlayerID: "a", Score: 9, PlayedAt: base},
		{PlayerID: "b", Score: 9, PlayedAt: base.Add(time.Minute)},
		{PlayerID: "c", Score: 1, PlayedAt: base},
	}

	got := app.RankRecords(rows, 2)
	if len(got) != 2 || got[0].PlayerID != "b" || got[1].PlayerID != "a" || got[1].Score != 9 {
		t.Fatalf("unexpected ranking: %+v", got)
	}
}
