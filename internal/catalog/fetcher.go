package catalog

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"movie-trivia-service/internal/domain"
)

// Filters describe the candidate set a game needs.
type Filters struct {
	// Genre is a provider genre id, empty for any.
	Genre          string
	YearFrom       int
	YearTo         int
	Language       string
	MinVoteCount   int
	MinVoteAverage float64
	MinPopularity  float64
	SortBy         string
	Count          int
	// RequirePoster drops items without a poster or with a non-positive rating.
	RequirePoster bool
	// Pages overrides the computed page count.
	Pages int
	// PageWindow samples Pages distinct random pages among the first
	// PageWindow pages instead of reading from page one. Sampled sets are
	// shuffled before truncation.
	PageWindow int
}

// PagesFor returns how many pages to read for n items: one safety page over the minimum.
func PagesFor(n int) int {
	return (n+PageSize-1)/PageSize + 1
}

// BlendedScore ranks best-rated candidates. Rating dominates; popularity
// only counts logarithmically.
func BlendedScore(m domain.Movie) float64 {
	score := m.VoteAverage * 2
	if m.Popularity > 0 {
		score += math.Log10(m.Popularity) * 3
	}
	return score
}

// Fetcher turns filters into shuffled, deduplicated candidate lists.
type Fetcher struct {
	provider Provider

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFetcher(provider Provider) *Fetcher {
	return NewFetcherWithSource(provider, rand.NewSource(time.Now().UnixNano()))
}

// NewFetcherWithSource is used by tests for deterministic shuffles.
func NewFetcherWithSource(provider Provider, src rand.Source) *Fetcher {
	return &Fetcher{provider: provider, rnd: rand.New(src)}
}

// Fetch returns exactly f.Count unique movies satisfying f. A single attempt is
// made; a short result fails with domain.ErrInsufficientCandidates.
func (f *Fetcher) Fetch(ctx context.Context, filters Filters) ([]domain.Movie, error) {
	if filters.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
	}
	base := DiscoverQuery{
		Genre:          filters.Genre,
		Language:       filters.Language,
		MinVoteCount:   filters.MinVoteCount,
		MinVoteAverage: filters.MinVoteAverage,
		MinPopularity:  filters.MinPopularity,
		SortBy:         filters.SortBy,
	}
	if filters.YearFrom > 0 {
		base.ReleaseFrom = fmt.Sprintf("%04d-01-01", filters.YearFrom)
	}
	if filters.YearTo > 0 {
		base.ReleaseTo = fmt.Sprintf("%04d-12-31", filters.YearTo)
	}

	pages := filters.Pages
	if pages <= 0 {
		pages = PagesFor(filters.Count)
	}
	pageNumbers, err := f.choosePages(ctx, base, pages, filters.PageWindow)
	if err != nil {
		return nil, err
	}

	results := make([]Page, len(pageNumbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range pageNumbers {
		i := i
		q := base
		q.Page = n
		g.Go(func() error {
			page, err := f.provider.Discover(gctx, q)
			if err != nil {
				return fmt.Errorf("discover page %d: %w", q.Page, err)
			}
			results[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	candidates := make([]domain.Movie, 0, len(pageNumbers)*PageSize)
	for _, page := range results {
		for _, m := range page.Results {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			if !filters.accepts(m) {
				continue
			}
			candidates = append(candidates, m)
		}
	}

	if filters.SortBy == SortBestRated {
		sort.SliceStable(candidates, func(i, j int) bool {
			return BlendedScore(candidates[i]) > BlendedScore(candidates[j])
		})
	}
	if len(candidates) < filters.Count {
		return nil, fmt.Errorf("%w: wanted %d, found %d", domain.ErrInsufficientCandidates, filters.Count, len(candidates))
	}

	if filters.PageWindow > 0 {
		f.shuffle(candidates)
		return candidates[:filters.Count], nil
	}
	candidates = candidates[:filters.Count]
	f.shuffle(candidates)
	return candidates, nil
}

func (f *Fetcher) choosePages(ctx context.Context, base DiscoverQuery, pages, window int) ([]int, error) {
	if window <= 0 {
		out := make([]int, pages)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}

	probe := base
	probe.Page = 1
	first, err := f.provider.Discover(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("discover page 1: %w", err)
	}
	if first.TotalPages > 0 && first.TotalPages < window {
		window = first.TotalPages
	}
	pages = min(pages, window)

	f.mu.Lock()
	perm := f.rnd.Perm(window)
	f.mu.Unlock()

	out := make([]int, pages)
	for i := range out {
		out[i] = perm[i] + 1
	}
	return out, nil
}

func (f *Fetcher) shuffle(movies []domain.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rnd.Shuffle(len(movies), func(i, j int) { movies[i], movies[j] = movies[j], movies[i] })
}

// Intn exposes the fetcher's random source to round builders.
func (f *Fetcher) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rnd.Intn(n)
}

func (filters Filters) accepts(m domain.Movie) bool {
	if filters.RequirePoster && (m.PosterPath == "" || m.VoteAverage <= 0) {
		return false
	}
	if m.VoteCount < filters.MinVoteCount || m.VoteAverage < filters.MinVoteAverage || m.Popularity < filters.MinPopularity {
		return false
	}
	if filters.Language != "" && m.OriginalLanguage != filters.Language {
		return false
	}
	if filters.Genre != "" && !hasGenre(m.GenreIDs, filters.Genre) {
		return false
	}
	if filters.YearFrom > 0 || filters.YearTo > 0 {
		year, err := strconv.Atoi(m.Year())
		if err != nil {
			return false
		}
		if filters.YearFrom > 0 && year < filters.YearFrom {
			return false
		}
		if filters.YearTo > 0 && year > filters.YearTo {
			return false
		}
	}
	return true
}

func hasGenre(ids []int, genre string) bool {
	want, err := strconv.Atoi(genre)
	if err != nil {
		return false
	}
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// EnrichDetails fetches details for every movie concurrently. A failed
// request leaves that movie with empty details.
func (f *Fetcher) EnrichDetails(ctx context.Context, movies []domain.Movie) []domain.MovieDetails {
	details := make([]domain.MovieDetails, len(movies))
	var g errgroup.Group
	g.SetLimit(8)
	for i, m := range movies {
		i, m := i, m
		g.Go(func() error {
			d, err := f.provider.MovieDetails(ctx, m.ID)
			if err != nil {
				log.Warn().Err(err).Int("movie", m.ID).Msg("movie details unavailable, degrading")
				return nil
			}
			details[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return details
}

// PopularActors lists acting-department people from the first pages of the
// popular people ranking with at least minKnownFor known-for titles.
func (f *Fetcher) PopularActors(ctx context.Context, pages, minKnownFor int) ([]domain.Person, error) {
	var actors []domain.Person
	seen := make(map[int]struct{})
	for p := 1; p <= pages; p++ {
		page, err := f.provider.PopularPeople(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("popular people page %d: %w", p, err)
		}
		for _, person := range page.Results {
			if _, dup := seen[person.ID]; dup {
				continue
			}
			seen[person.ID] = struct{}{}
			if person.KnownForDepartment != "Acting" || person.KnownForCount < minKnownFor {
				continue
			}
			actors = append(actors, person)
		}
	}
	f.mu.Lock()
	f.rnd.Shuffle(len(actors), func(i, j int) { actors[i], actors[j] = actors[j], actors[i] })
	f.mu.Unlock()
	return actors, nil
}

// Credits returns the movies an actor appears in.
func (f *Fetcher) Credits(ctx context.Context, personID int) ([]domain.Movie, error) {
	movies, err := f.provider.PersonMovieCredits(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("credits of person %d: %w", personID, err)
	}
	return movies, nil
}

// Titles lists distinct titles from the first pages of popular movies, for autocomplete.
func (f *Fetcher) Titles(ctx context.Context, pages, minVoteCount int) ([]string, error) {
	var titles []string
	seen := make(map[string]struct{})
	for p := 1; p <= pages; p++ {
		page, err := f.provider.Discover(ctx, DiscoverQuery{SortBy: SortPopularity, MinVoteCount: minVoteCount, Page: p})
		if err != nil {
			return nil, fmt.Errorf("discover page %d: %w", p, err)
		}
		for _, m := range page.Results {
			if _, dup := seen[m.Title]; dup || m.Title == "" {
				continue
			}
			seen[m.Title] = struct{}{}
			titles = append(titles, m.Title)
		}
	}
	return titles, nil
}
