package app

import (
	"context"
	"io"

	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
)

// SessionRepository abstracts where live game sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *LiveSession)
	Get(sessionID string) (*LiveSession, bool)
	Delete(sessionID string)
	List() []*LiveSession
}

// ScoreRepository persists best scores, one row per (player, mode).
type ScoreRepository interface {
	// Best returns domain.ErrNotFound when the player has no score in mode.
	Best(ctx context.Context, playerID string, mode domain.Mode) (domain.ScoreRecord, error)
	Upsert(ctx context.Context, record domain.ScoreRecord) error
	// Top returns up to limit rows ordered by score desc, then played_at desc.
	Top(ctx context.Context, mode domain.Mode, limit int) ([]domain.ScoreRecord, error)
}

// ProfileRepository stores player profiles.
type ProfileRepository interface {
	Get(ctx context.Context, playerID string) (domain.Profile, error)
	GetMany(ctx context.Context, playerIDs []string) (map[string]domain.Profile, error)
	Upsert(ctx context.Context, profile domain.Profile) error
}

// AccountRepository stores login credentials.
type AccountRepository interface {
	// Create returns domain.ErrEmailTaken for a duplicate email.
	Create(ctx context.Context, account domain.Account) error
	ByEmail(ctx context.Context, email string) (domain.Account, error)
	ByID(ctx context.Context, id string) (domain.Account, error)
}

// HallOfFameRepository is a capped list of tournament winners, oldest evicted first.
type HallOfFameRepository interface {
	Append(ctx context.Context, entry domain.HallOfFameEntry) error
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]domain.HallOfFameEntry, error)
}

// AvatarStore is object storage for avatar images.
type AvatarStore interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// CandidateSource is what round builders need from the catalog.
type CandidateSource interface {
	Fetch(ctx context.Context, filters catalog.Filters) ([]domain.Movie, error)
	EnrichDetails(ctx context.Context, movies []domain.Movie) []domain.MovieDetails
	PopularActors(ctx context.Context, pages, minKnownFor int) ([]domain.Person, error)
	Credits(ctx context.Context, personID int) ([]domain.Movie, error)
	Titles(ctx context.Context, pages, minVoteCount int) ([]string, error)
	Intn(n int) int
}
