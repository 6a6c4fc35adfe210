package engine

import (
	"fmt"
	"strings"

	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/evaluate"
)

// Outcome is the resolution of a round.
type Outcome string

const (
	OutcomeUndecided Outcome = "undecided"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeTimedOut  Outcome = "timed_out"
	// OutcomeAdvanced marks a bracket match whose pick moved on.
	OutcomeAdvanced Outcome = "advanced"
)

// Round is one guess or selection opportunity.
type Round struct {
	Index  int
	Label  string
	Movies []domain.Movie
	// Details belongs to Movies[0] in ladder rounds.
	Details domain.MovieDetails
	Actor   *domain.Person
	// Answer is the index of the correct movie in impostor rounds.
	Answer int
	Hints  []string

	Revealed  int
	Attempts  int
	BlurLevel int
	Guesses   []string
	Picked    int
	Outcome   Outcome
	Points    int
}

// Resolved reports whether the outcome is set.
func (r *Round) Resolved() bool { return r.Outcome != OutcomeUndecided }

// RevealedHints returns the hints shown so far.
func (r *Round) RevealedHints() []string {
	return r.Hints[:min(r.Revealed, len(r.Hints))]
}

// LadderRound builds a typed-guess round for movie with the hint ladder of mode.
func LadderRound(mode domain.Mode, movie domain.Movie, details domain.MovieDetails) Round {
	var hints []string
	switch mode {
	case domain.ModeWhoAmI:
		hints = WhoAmIHints(movie, details)
	default:
		hints = BlurHints(movie, details)
	}
	return Round{Movies: []domain.Movie{movie}, Details: details, Hints: hints}
}

// VersusRound builds a higher-rating round from two movies.
func VersusRound(a, b domain.Movie) Round {
	return Round{Movies: []domain.Movie{a, b}}
}

// ImpostorRound builds an odd-one-out round. answer is the index of the
// movie that does not belong to actor's credits.
func ImpostorRound(actor domain.Person, movies []domain.Movie, answer int) Round {
	return Round{Movies: movies, Actor: &actor, Answer: answer}
}

const maxCastHints = 3

// BlurHints orders the clues revealed after each failed blur guess: release
// year, genres, provider rating, then the top billed actors.
func BlurHints(movie domain.Movie, details domain.MovieDetails) []string {
	hints := []string{
		"Release year: " + orUnknown(movie.Year()),
		"Genres: " + orUnknown(strings.Join(details.Genres, ", ")),
		"TMDB rating: " + evaluate.RoundRating(movie.VoteAverage).StringFixed(1),
	}
	for i, member := range details.Cast {
		if i == maxCastHints {
			break
		}
		hints = append(hints, "Actor: "+member.Name)
	}
	return hints
}

// WhoAmIHints orders the clue ladder of the who-am-I mode. The first entry is
// shown before any guess.
func WhoAmIHints(movie domain.Movie, details domain.MovieDetails) []string {
	genre := ""
	if len(details.Genres) > 0 {
		genre = details.Genres[0]
	}
	lead := ""
	if len(details.Cast) > 0 {
		lead = details.Cast[0].Name
	}
	last := "Tagline: " + details.Tagline
	if details.Tagline == "" {
		last = "Synopsis: " + orUnknown(firstSentence(details.Overview))
	}
	return []string{
		"Release year: " + orUnknown(movie.Year()),
		"Main genre: " + orUnknown(genre),
		"Director: " + orUnknown(details.Director),
		"Lead actor: " + orUnknown(lead),
		last,
	}
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// BracketLabel names a bracket level by the number of movies still in it.
func BracketLabel(remaining int) string {
	switch remaining {
	case 2:
		return "Final"
	case 4:
		return "Semifinal"
	case 8:
		return "Quarterfinal"
	case 16:
		return "Round of 16"
	case 32:
		return "Round of 32"
	default:
		return fmt.Sprintf("Round of %d", remaining)
	}
}
