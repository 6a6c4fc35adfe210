package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{APIKey: "k", BaseURL: server.URL})
}

func TestDiscoverSendsFiltersAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"api_key":                  "k",
			"language":                 "es-ES",
			"with_genres":              "28",
			"with_original_language":   "en",
			"primary_release_date.gte": "1990-01-01",
			"vote_count.gte":           "5000",
			"vote_average.gte":         "7",
			"sort_by":                  "vote_average.desc",
			"page":                     "2",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("param %s = %q, want %q", k, q.Get(k), v)
			}
		}
		_, _ = w.Write([]byte(`{"page":2,"total_pages":9,"total_results":170,"results":[
			{"id":603,"title":"Matrix","poster_path":"/m.jpg","vote_average":8.2,"vote_count":25000,"popularity":80.5,"release_date":"1999-03-31","genre_ids":[28,878],"original_language":"en"}
		]}`))
	})

	page, err := client.Discover(context.Background(), catalog.DiscoverQuery{
		Genre:          "28",
		Language:       "en",
		ReleaseFrom:    "1990-01-01",
		MinVoteCount:   5000,
		MinVoteAverage: 7,
		SortBy:         catalog.SortBestRated,
		Page:           2,
	})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if page.TotalPages != 9 || len(page.Results) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	m := page.Results[0]
	if m.ID != 603 || m.Title != "Matrix" || m.Year() != "1999" || len(m.GenreIDs) != 2 {
		t.Fatalf("unexpected movie %+v", m)
	}
}

func TestMovieDetailsPicksDirector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("expected credits appended")
		}
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Acción"}],"tagline":"","overview":"Neo despierta. Luego pelea.","runtime":136,
			"credits":{"cast":[{"id":6384,"name":"Keanu Reeves","character":"Neo","order":0}],
			"crew":[{"name":"Someone","job":"Producer"},{"name":"Lana Wachowski","job":"Director"}]}}`))
	})

	details, err := client.MovieDetails(context.Background(), 603)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details.Director != "Lana Wachowski" || len(details.Cast) != 1 || details.Genres[0] != "Acción" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestPopularPeopleCountsKnownFor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"total_pages":500,"results":[
			{"id":31,"name":"Tom Hanks","known_for_department":"Acting","known_for":[{"id":1},{"id":2},{"id":3}]}
		]}`))
	})
	page, err := client.PopularPeople(context.Background(), 1)
	if err != nil {
		t.Fatalf("people: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].KnownForCount != 3 {
		t.Fatalf("unexpected people %+v", page.Results)
	}
}

func TestErrorStatusUsesProviderMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`))
	})
	_, err := client.PersonMovieCredits(context.Background(), 31)
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestMalformedBodyIsCatalogFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":`))
	})
	_, err := client.Discover(context.Background(), catalog.DiscoverQuery{})
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
}
