package app

import (
	"time"

	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
	"movie-trivia-service/internal/evaluate"
)

// MovieCard is a movie as shown to the player. Fields that would give the
// answer away stay empty while the round is open.
type MovieCard struct {
	ID          int      `json:"id,omitempty"`
	Title       string   `json:"title,omitempty"`
	PosterPath  string   `json:"posterPath,omitempty"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// RoundView is the player-facing state of a round.
type RoundView struct {
	Index        int            `json:"index"`
	Label        string         `json:"label,omitempty"`
	Movies       []MovieCard    `json:"movies"`
	Actor        string         `json:"actor,omitempty"`
	Hints        []string       `json:"hints,omitempty"`
	BlurLevel    int            `json:"blurLevel"`
	AttemptsUsed int            `json:"attemptsUsed"`
	AttemptsLeft int            `json:"attemptsLeft"`
	Outcome      engine.Outcome `json:"outcome"`
	Points       int            `json:"points"`
	Picked       *int           `json:"picked,omitempty"`
	Answer       *MovieCard     `json:"answer,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
}

// RoundResult summarises a resolved round.
type RoundResult struct {
	Index   int            `json:"index"`
	Outcome engine.Outcome `json:"outcome"`
	Points  int            `json:"points"`
	Answer  string         `json:"answer,omitempty"`
}

// SessionView is the player-facing state of a session.
type SessionView struct {
	ID          string        `json:"id"`
	Mode        domain.Mode   `json:"mode"`
	State       engine.State  `json:"state"`
	Current     int           `json:"current"`
	TotalRounds int           `json:"totalRounds"`
	Total       int           `json:"total"`
	TextInput   bool          `json:"textInput"`
	Round       *RoundView    `json:"round,omitempty"`
	Results     []RoundResult `json:"results"`
	Winner      *MovieCard    `json:"winner,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
}

// TransitionView reports the effect of one guess, pick or timeout.
type TransitionView struct {
	Round     int            `json:"round"`
	Correct   bool           `json:"correct"`
	Resolved  bool           `json:"resolved"`
	Outcome   engine.Outcome `json:"outcome,omitempty"`
	Points    int            `json:"points"`
	NewHint   string         `json:"newHint,omitempty"`
	BlurLevel int            `json:"blurLevel"`
	NextRound int            `json:"nextRound"`
	Ended     bool           `json:"ended"`
	Total     int            `json:"total"`
	Answer    *MovieCard     `json:"answer,omitempty"`
}

// Update is pushed to session subscribers.
type Update struct {
	Type       string          `json:"type"`
	Session    SessionView     `json:"session"`
	Transition *TransitionView `json:"transition,omitempty"`
}

const (
	UpdateSnapshot      = "snapshot"
	UpdateHint          = "hint"
	UpdateRoundResolved = "round_resolved"
	UpdateRoundStarted  = "round_started"
	UpdateSessionEnded  = "session_ended"
	UpdateAbandoned     = "abandoned"
)

func fullCard(m domain.Movie) MovieCard {
	rating, _ := evaluate.RoundRating(m.VoteAverage).Float64()
	return MovieCard{ID: m.ID, Title: m.Title, PosterPath: m.PosterPath, ReleaseDate: m.ReleaseDate, Rating: &rating}
}

// cardsFor hides what an open round is asking about. A ladder round only
// shows its poster when the mode blurs it.
func cardsFor(d engine.Descriptor, r *engine.Round) []MovieCard {
	cards := make([]MovieCard, 0, len(r.Movies))
	for _, m := range r.Movies {
		if r.Resolved() {
			cards = append(cards, fullCard(m))
			continue
		}
		switch d.Kind {
		case engine.KindLadder:
			card := MovieCard{}
			if len(d.BlurSchedule) > 0 {
				card.PosterPath = m.PosterPath
			}
			cards = append(cards, card)
		case engine.KindVersus:
			cards = append(cards, MovieCard{ID: m.ID, Title: m.Title, PosterPath: m.PosterPath, ReleaseDate: m.ReleaseDate})
		default:
			c := fullCard(m)
			c.Rating = nil
			cards = append(cards, c)
		}
	}
	return cards
}

func roundView(d engine.Descriptor, r *engine.Round, deadline time.Time) *RoundView {
	v := &RoundView{
		Index:        r.Index,
		Label:        r.Label,
		Movies:       cardsFor(d, r),
		Hints:        append([]string(nil), r.RevealedHints()...),
		BlurLevel:    r.BlurLevel,
		AttemptsUsed: r.Attempts,
		AttemptsLeft: max(0, d.AttemptBudget-r.Attempts),
		Outcome:      r.Outcome,
		Points:       r.Points,
	}
	if r.Actor != nil {
		v.Actor = r.Actor.Name
	}
	if r.Picked >= 0 {
		picked := r.Picked
		v.Picked = &picked
	}
	if r.Resolved() {
		v.AttemptsLeft = 0
		if answer, ok := answerOf(d.Kind, r); ok {
			card := fullCard(answer)
			v.Answer = &card
		}
	} else if !deadline.IsZero() {
		dl := deadline
		v.Deadline = &dl
	}
	return v
}

// answerOf returns the movie that was the right answer of a resolved round.
func answerOf(kind engine.Kind, r *engine.Round) (domain.Movie, bool) {
	switch kind {
	case engine.KindLadder:
		return r.Movies[0], true
	case engine.KindImpostor:
		return r.Movies[r.Answer], true
	case engine.KindVersus:
		if evaluate.HigherOrEqual(r.Movies[0].VoteAverage, r.Movies[1].VoteAverage) {
			return r.Movies[0], true
		}
		return r.Movies[1], true
	case engine.KindBracket:
		if r.Picked >= 0 {
			return r.Movies[r.Picked], true
		}
	}
	return domain.Movie{}, false
}

func sessionView(s *engine.Session, startedAt, deadline time.Time) SessionView {
	v := SessionView{
		ID:          s.ID,
		Mode:        s.Descriptor.Mode,
		State:       s.State,
		Current:     s.Current,
		TotalRounds: len(s.Rounds),
		Total:       s.Total,
		TextInput:   s.Descriptor.Kind.TextInput(),
		Results:     []RoundResult{},
		StartedAt:   startedAt,
	}
	for i := range s.Rounds {
		r := &s.Rounds[i]
		if !r.Resolved() {
			continue
		}
		res := RoundResult{Index: r.Index, Outcome: r.Outcome, Points: r.Points}
		if answer, ok := answerOf(s.Descriptor.Kind, r); ok {
			res.Answer = answer.Title
		}
		v.Results = append(v.Results, res)
	}
	if len(s.Rounds) > 0 && s.State != engine.StateAwaitingStart {
		v.Round = roundView(s.Descriptor, &s.Rounds[s.Current], deadline)
	}
	if s.Winner != nil {
		card := fullCard(*s.Winner)
		v.Winner = &card
	}
	return v
}

func transitionView(s *engine.Session, t engine.Transition) TransitionView {
	v := TransitionView{
		Round:     t.Round,
		Correct:   t.Correct,
		Resolved:  t.Resolved,
		Outcome:   t.Outcome,
		Points:    t.Points,
		NewHint:   t.NewHint,
		BlurLevel: t.BlurLevel,
		NextRound: t.NextRound,
		Ended:     t.Ended,
		Total:     t.Total,
	}
	if t.Resolved && t.Round >= 0 && t.Round < len(s.Rounds) {
		if answer, ok := answerOf(s.Descriptor.Kind, &s.Rounds[t.Round]); ok {
			card := fullCard(answer)
			v.Answer = &card
		}
	}
	return v
}
