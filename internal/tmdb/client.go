// Package tmdb is a read-only client for The Movie Database API.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "es-ES"
)

// Options configure a Client.
type Options struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Client implements catalog.Provider over HTTP.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
}

var _ catalog.Provider = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		language: opts.Language,
		http:     &http.Client{Timeout: opts.Timeout},
	}
}

type movieResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	ReleaseDate      string  `json:"release_date"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
}

func (m movieResult) toDomain() domain.Movie {
	return domain.Movie{
		ID:               m.ID,
		Title:            m.Title,
		PosterPath:       m.PosterPath,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		Popularity:       m.Popularity,
		ReleaseDate:      m.ReleaseDate,
		GenreIDs:         m.GenreIDs,
		OriginalLanguage: m.OriginalLanguage,
	}
}

func toMovies(results []movieResult) []domain.Movie {
	out := make([]domain.Movie, 0, len(results))
	for _, r := range results {
		out = append(out, r.toDomain())
	}
	return out
}

type discoverResponse struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
	Results      []movieResult `json:"results"`
}

// Discover runs a /discover/movie query.
func (c *Client) Discover(ctx context.Context, q catalog.DiscoverQuery) (catalog.Page, error) {
	params := url.Values{}
	if q.Genre != "" {
		params.Set("with_genres", q.Genre)
	}
	if q.Language != "" {
		params.Set("with_original_language", q.Language)
	}
	if q.ReleaseFrom != "" {
		params.Set("primary_release_date.gte", q.ReleaseFrom)
	}
	if q.ReleaseTo != "" {
		params.Set("primary_release_date.lte", q.ReleaseTo)
	}
	if q.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(q.MinVoteCount))
	}
	if q.MinVoteAverage > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(q.MinVoteAverage, 'f', -1, 64))
	}
	if q.MinPopularity > 0 {
		params.Set("popularity.gte", strconv.FormatFloat(q.MinPopularity, 'f', -1, 64))
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))

	var resp discoverResponse
	if err := c.get(ctx, "/discover/movie", params, &resp); err != nil {
		return catalog.Page{}, err
	}
	return catalog.Page{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      toMovies(resp.Results),
	}, nil
}

type detailsResponse struct {
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Tagline  string `json:"tagline"`
	Overview string `json:"overview"`
	Runtime  int    `json:"runtime"`
	Credits  struct {
		Cast []struct {
			ID        int    `json:"id"`
			Name      string `json:"name"`
			Character string `json:"character"`
			Order     int    `json:"order"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// MovieDetails fetches /movie/{id} with credits appended.
func (c *Client) MovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits")

	var resp detailsResponse
	if err := c.get(ctx, "/movie/"+strconv.Itoa(movieID), params, &resp); err != nil {
		return domain.MovieDetails{}, err
	}

	details := domain.MovieDetails{
		Tagline:  resp.Tagline,
		Overview: resp.Overview,
		Runtime:  resp.Runtime,
	}
	for _, g := range resp.Genres {
		details.Genres = append(details.Genres, g.Name)
	}
	for _, member := range resp.Credits.Cast {
		details.Cast = append(details.Cast, domain.CastMember{
			ID:        member.ID,
			Name:      member.Name,
			Character: member.Character,
			Order:     member.Order,
		})
	}
	for _, member := range resp.Credits.Crew {
		if member.Job == "Director" {
			details.Director = member.Name
			break
		}
	}
	return details, nil
}

type peopleResponse struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		ID                 int               `json:"id"`
		Name               string            `json:"name"`
		ProfilePath        string            `json:"profile_path"`
		KnownForDepartment string            `json:"known_for_department"`
		KnownFor           []json.RawMessage `json:"known_for"`
	} `json:"results"`
}

// PopularPeople fetches a page of /person/popular.
func (c *Client) PopularPeople(ctx context.Context, page int) (catalog.PeoplePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))

	var resp peopleResponse
	if err := c.get(ctx, "/person/popular", params, &resp); err != nil {
		return catalog.PeoplePage{}, err
	}
	out := catalog.PeoplePage{Page: resp.Page, TotalPages: resp.TotalPages}
	for _, r := range resp.Results {
		out.Results = append(out.Results, domain.Person{
			ID:                 r.ID,
			Name:               r.Name,
			ProfilePath:        r.ProfilePath,
			KnownForDepartment: r.KnownForDepartment,
			KnownForCount:      len(r.KnownFor),
		})
	}
	return out, nil
}

// PersonMovieCredits fetches the cast credits of a person.
func (c *Client) PersonMovieCredits(ctx context.Context, personID int) ([]domain.Movie, error) {
	var resp struct {
		Cast []movieResult `json:"cast"`
	}
	if err := c.get(ctx, "/person/"+strconv.Itoa(personID)+"/movie_credits", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return toMovies(resp.Cast), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "status_message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s returned %d: %s", domain.ErrCatalogUnavailable, path, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	return nil
}
