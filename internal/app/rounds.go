package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
)

// Catalog filters per mode.
var (
	versusFilters = catalog.Filters{
		SortBy:         catalog.SortVoteCount,
		MinVoteCount:   3000,
		MinVoteAverage: 6,
		Count:          engine.VersusRounds * 2,
		Pages:          4,
		PageWindow:     20,
		RequirePoster:  true,
	}
	blurFilters = catalog.Filters{
		SortBy:        catalog.SortPopularity,
		MinVoteCount:  1000,
		Count:         engine.BlurRounds,
		PageWindow:    5,
		RequirePoster: true,
	}
	whoAmIFilters = catalog.Filters{
		SortBy:        catalog.SortPopularity,
		MinVoteCount:  1000,
		Count:         engine.WhoAmIRounds,
		Pages:         1,
		PageWindow:    10,
		RequirePoster: true,
	}
	impostorDecoyFilters = catalog.Filters{
		SortBy:        catalog.SortPopularity,
		MinVoteCount:  1000,
		Count:         40,
		Pages:         3,
		PageWindow:    10,
		RequirePoster: true,
	}
)

const (
	impostorPeoplePages  = 2
	impostorMinKnownFor  = 3
	impostorDecoyRetries = 10
)

// Tournament settings accepted from players.
var (
	TournamentGenres    = []string{"28", "12", "16", "35", "80", "18", "14", "27", "10749", "878"}
	TournamentLanguages = []string{"es", "en", "fr", "it", "de"}
	TournamentSizes     = []int{2, 4, 8, 16, 32}
)

// ValidateTournament normalises and checks tournament settings.
func ValidateTournament(s domain.TournamentSettings) (domain.TournamentSettings, error) {
	if s.Genre == "all" {
		s.Genre = ""
	}
	if s.Genre != "" && !slices.Contains(TournamentGenres, s.Genre) {
		return s, fmt.Errorf("%w: unsupported genre %q", domain.ErrInvalidInput, s.Genre)
	}
	if s.Language != "" && !slices.Contains(TournamentLanguages, s.Language) {
		return s, fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidInput, s.Language)
	}
	if s.TotalMovies == 0 {
		s.TotalMovies = 16
	}
	if !slices.Contains(TournamentSizes, s.TotalMovies) {
		return s, fmt.Errorf("%w: tournament size must be one of %v", domain.ErrInvalidInput, TournamentSizes)
	}
	if s.SortBy == "" {
		s.SortBy = catalog.SortPopularity
	}
	if s.SortBy != catalog.SortPopularity && s.SortBy != catalog.SortBestRated {
		return s, fmt.Errorf("%w: unsupported sort %q", domain.ErrInvalidInput, s.SortBy)
	}
	if s.YearFrom > 0 && s.YearTo > 0 && s.YearFrom > s.YearTo {
		return s, fmt.Errorf("%w: year range is reversed", domain.ErrInvalidInput)
	}
	return s, nil
}

func tournamentFilters(s domain.TournamentSettings) catalog.Filters {
	f := catalog.Filters{
		Genre:         s.Genre,
		YearFrom:      s.YearFrom,
		YearTo:        s.YearTo,
		Language:      s.Language,
		MinVoteCount:  5000,
		MinPopularity: 10,
		SortBy:        s.SortBy,
		Count:         s.TotalMovies,
		RequirePoster: true,
	}
	if s.SortBy == catalog.SortBestRated {
		f.MinVoteAverage = 7
	}
	return f
}

func buildVersusRounds(ctx context.Context, src CandidateSource) ([]engine.Round, error) {
	movies, err := src.Fetch(ctx, versusFilters)
	if err != nil {
		return nil, err
	}
	rounds := make([]engine.Round, 0, engine.VersusRounds)
	for i := 0; i+1 < len(movies) && len(rounds) < engine.VersusRounds; i += 2 {
		rounds = append(rounds, engine.VersusRound(movies[i], movies[i+1]))
	}
	return rounds, nil
}

func buildLadderRounds(ctx context.Context, src CandidateSource, mode domain.Mode, filters catalog.Filters) ([]engine.Round, error) {
	movies, err := src.Fetch(ctx, filters)
	if err != nil {
		return nil, err
	}
	details := src.EnrichDetails(ctx, movies)
	rounds := make([]engine.Round, 0, len(movies))
	for i, m := range movies {
		rounds = append(rounds, engine.LadderRound(mode, m, details[i]))
	}
	return rounds, nil
}

// buildImpostorRounds pairs popular actors with four of their credits and one
// popular movie they are not credited in.
func buildImpostorRounds(ctx context.Context, src CandidateSource) ([]engine.Round, error) {
	actors, err := src.PopularActors(ctx, impostorPeoplePages, impostorMinKnownFor)
	if err != nil {
		return nil, err
	}
	decoys, err := src.Fetch(ctx, impostorDecoyFilters)
	if err != nil {
		return nil, err
	}

	rounds := make([]engine.Round, 0, engine.ImpostorRounds)
	for _, actor := range actors {
		if len(rounds) == engine.ImpostorRounds {
			break
		}
		credits, err := src.Credits(ctx, actor.ID)
		if err != nil {
			log.Warn().Err(err).Int("person", actor.ID).Msg("skipping actor without credits")
			continue
		}
		eligible := withPosters(credits)
		if len(eligible) < engine.ImpostorRealCredits {
			continue
		}
		credited := make(map[int]struct{}, len(credits))
		for _, m := range credits {
			credited[m.ID] = struct{}{}
		}

		var impostor *domain.Movie
		for attempt := 0; attempt < impostorDecoyRetries; attempt++ {
			candidate := decoys[src.Intn(len(decoys))]
			if _, ok := credited[candidate.ID]; !ok {
				impostor = &candidate
				break
			}
		}
		if impostor == nil {
			continue
		}

		movies := make([]domain.Movie, 0, engine.ImpostorRealCredits+1)
		for _, idx := range pickDistinct(src, len(eligible), engine.ImpostorRealCredits) {
			movies = append(movies, eligible[idx])
		}
		answer := src.Intn(len(movies) + 1)
		movies = slices.Insert(movies, answer, *impostor)
		rounds = append(rounds, engine.ImpostorRound(actor, movies, answer))
	}

	if len(rounds) < engine.ImpostorRounds {
		return nil, fmt.Errorf("%w: built %d impostor rounds of %d", domain.ErrInsufficientCandidates, len(rounds), engine.ImpostorRounds)
	}
	return rounds, nil
}

func withPosters(movies []domain.Movie) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	seen := make(map[int]struct{}, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup || m.PosterPath == "" {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// pickDistinct returns k distinct indexes below n (partial Fisher-Yates).
func pickDistinct(src CandidateSource, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
