// Package catalog pulls candidate movies and actors from the metadata provider.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"movie-trivia-service/internal/domain"
)

// PageSize is the fixed page size of the provider.
const PageSize = 20

const (
	SortPopularity = "popularity.desc"
	SortBestRated  = "vote_average.desc"
	SortVoteCount  = "vote_count.desc"
)

// DiscoverQuery is one page request against the discovery endpoint.
type DiscoverQuery struct {
	Genre          string
	Language       string
	ReleaseFrom    string
	ReleaseTo      string
	MinVoteCount   int
	MinVoteAverage float64
	MinPopularity  float64
	SortBy         string
	Page           int
}

// Key identifies the query for caching.
func (q DiscoverQuery) Key() string {
	return strings.Join([]string{
		"g=" + q.Genre,
		"l=" + q.Language,
		"from=" + q.ReleaseFrom,
		"to=" + q.ReleaseTo,
		fmt.Sprintf("vc=%d", q.MinVoteCount),
		fmt.Sprintf("va=%g", q.MinVoteAverage),
		fmt.Sprintf("pop=%g", q.MinPopularity),
		"s=" + q.SortBy,
		fmt.Sprintf("p=%d", q.Page),
	}, "&")
}

// Page is one page of discovery results.
type Page struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []domain.Movie `json:"results"`
}

// PeoplePage is one page of popular people.
type PeoplePage struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Results    []domain.Person `json:"results"`
}

// Provider is the movie metadata source. Implementations wrap transport
// failures in domain.ErrCatalogUnavailable.
type Provider interface {
	Discover(ctx context.Context, q DiscoverQuery) (Page, error)
	MovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error)
	PopularPeople(ctx context.Context, page int) (PeoplePage, error)
	PersonMovieCredits(ctx context.Context, personID int) ([]domain.Movie, error)
}
