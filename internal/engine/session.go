package engine

import (
	"errors"
	"fmt"
	"strings"

	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/evaluate"
)

var (
	// ErrStaleEvent is returned for events addressed to a round that is no longer active.
	ErrStaleEvent = errors.New("event targets an inactive round")
	// ErrNotStarted is returned for input before Start.
	ErrNotStarted = errors.New("session not started")
	// ErrWrongInput is returned when a guess is sent to a pick round or vice versa.
	ErrWrongInput = fmt.Errorf("%w: input kind not accepted by this round", domain.ErrInvalidInput)
	// ErrInvalidPick is returned for a selection outside the round's movies.
	ErrInvalidPick = fmt.Errorf("%w: pick out of range", domain.ErrInvalidInput)
	// ErrEmptyGuess is returned for a blank guess.
	ErrEmptyGuess = fmt.Errorf("%w: empty guess", domain.ErrInvalidInput)
	// ErrNoClock is returned for a timeout in a mode without a round timer.
	ErrNoClock = fmt.Errorf("%w: mode has no round timer", domain.ErrInvalidInput)
)

// State is the lifecycle position of a session.
type State string

const (
	StateAwaitingStart State = "awaiting_start"
	StateRoundActive   State = "round_active"
	StateRoundResolved State = "round_resolved"
	StateSessionEnded  State = "session_ended"
)

// EventKind tags an Event.
type EventKind int

const (
	EventGuess EventKind = iota
	EventPick
	EventTimeout
)

// Event is an input addressed to a specific round.
type Event struct {
	Kind   EventKind
	Round  int
	Text   string
	Choice int
}

// Guess builds a typed guess event.
func Guess(round int, text string) Event { return Event{Kind: EventGuess, Round: round, Text: text} }

// Pick builds a selection event.
func Pick(round, choice int) Event { return Event{Kind: EventPick, Round: round, Choice: choice} }

// Timeout builds a clock expiry event.
func Timeout(round int) Event { return Event{Kind: EventTimeout, Round: round} }

// Transition reports what an accepted event changed.
type Transition struct {
	Round     int
	Correct   bool
	Resolved  bool
	Outcome   Outcome
	Points    int
	NewHint   string
	BlurLevel int
	// NextRound is the index of the round activated by this transition, or -1.
	NextRound int
	Ended     bool
	Total     int
}

// Session is one play-through. It is not safe for concurrent use.
type Session struct {
	ID         string
	Descriptor Descriptor
	Rounds     []Round
	Current    int
	State      State
	Total      int
	// Winner is set when a bracket session ends.
	Winner *domain.Movie

	advancing []domain.Movie
	levelEnd  int
}

// NewSession prepares a session over prebuilt rounds.
func NewSession(id string, d Descriptor, rounds []Round) (*Session, error) {
	if d.Kind == KindBracket {
		return nil, fmt.Errorf("%w: bracket sessions are built from a pool", domain.ErrInvalidInput)
	}
	if len(rounds) == 0 {
		return nil, fmt.Errorf("%w: no rounds", domain.ErrInvalidInput)
	}
	for i := range rounds {
		if err := validateRound(d, rounds[i]); err != nil {
			return nil, fmt.Errorf("round %d: %w", i, err)
		}
		rounds[i].Index = i
		resetRound(&rounds[i])
	}
	return &Session{ID: id, Descriptor: d, Rounds: rounds, State: StateAwaitingStart}, nil
}

// NewBracket prepares a single elimination session over pool, which must
// hold a power of two of at least two movies.
func NewBracket(id string, d Descriptor, pool []domain.Movie) (*Session, error) {
	n := len(pool)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: bracket needs a power of two movies, got %d", domain.ErrInvalidInput, n)
	}
	s := &Session{ID: id, Descriptor: d, State: StateAwaitingStart}
	s.appendLevel(pool)
	return s, nil
}

func validateRound(d Descriptor, r Round) error {
	switch d.Kind {
	case KindLadder:
		if len(r.Movies) != 1 {
			return fmt.Errorf("%w: ladder round needs one movie", domain.ErrInvalidInput)
		}
	case KindVersus:
		if len(r.Movies) != 2 {
			return fmt.Errorf("%w: versus round needs two movies", domain.ErrInvalidInput)
		}
	case KindImpostor:
		if len(r.Movies) < 2 || r.Answer < 0 || r.Answer >= len(r.Movies) {
			return fmt.Errorf("%w: impostor answer out of range", domain.ErrInvalidInput)
		}
	}
	return nil
}

func resetRound(r *Round) {
	r.Picked = -1
	r.Outcome = OutcomeUndecided
}

func (s *Session) appendLevel(pool []domain.Movie) {
	label := BracketLabel(len(pool))
	for i := 0; i+1 < len(pool); i += 2 {
		r := Round{Index: len(s.Rounds), Label: label, Movies: []domain.Movie{pool[i], pool[i+1]}}
		resetRound(&r)
		s.Rounds = append(s.Rounds, r)
	}
	s.levelEnd = len(s.Rounds) - 1
	s.advancing = s.advancing[:0]
}

// Active returns the round accepting input.
func (s *Session) Active() (*Round, bool) {
	if s.State != StateRoundActive {
		return nil, false
	}
	return &s.Rounds[s.Current], true
}

// Start activates the first round.
func (s *Session) Start() (Transition, error) {
	if s.State != StateAwaitingStart {
		return Transition{}, fmt.Errorf("%w: session already started", domain.ErrInvalidInput)
	}
	s.activate(0)
	return Transition{Round: -1, NextRound: 0, BlurLevel: s.Rounds[0].BlurLevel}, nil
}

func (s *Session) activate(i int) {
	s.Current = i
	s.State = StateRoundActive
	r := &s.Rounds[i]
	r.Revealed = min(s.Descriptor.InitialHints, len(r.Hints))
	r.BlurLevel = s.Descriptor.BlurAt(0)
}

// Apply feeds an event to the active round.
func (s *Session) Apply(ev Event) (Transition, error) {
	switch s.State {
	case StateAwaitingStart:
		return Transition{}, ErrNotStarted
	case StateSessionEnded:
		return Transition{}, domain.ErrSessionEnded
	}
	if ev.Round != s.Current {
		return Transition{}, ErrStaleEvent
	}
	r := &s.Rounds[s.Current]

	switch ev.Kind {
	case EventTimeout:
		if s.Descriptor.RoundTimeout <= 0 {
			return Transition{}, ErrNoClock
		}
		return s.resolve(r, OutcomeTimedOut, 0), nil
	case EventGuess:
		if !s.Descriptor.Kind.TextInput() {
			return Transition{}, ErrWrongInput
		}
		return s.guess(r, ev.Text)
	case EventPick:
		if s.Descriptor.Kind.TextInput() {
			return Transition{}, ErrWrongInput
		}
		return s.pick(r, ev.Choice)
	default:
		return Transition{}, fmt.Errorf("%w: unknown event", domain.ErrInvalidInput)
	}
}

func (s *Session) guess(r *Round, text string) (Transition, error) {
	if strings.TrimSpace(text) == "" {
		return Transition{}, ErrEmptyGuess
	}
	r.Guesses = append(r.Guesses, text)
	match := s.Descriptor.Match
	if match == nil {
		match = evaluate.Tolerant
	}
	if match(text, r.Movies[0].Title) {
		return s.resolve(r, OutcomeCorrect, s.Descriptor.Points(r.Attempts)), nil
	}

	r.Attempts++
	if r.Attempts >= s.Descriptor.AttemptBudget {
		return s.resolve(r, OutcomeIncorrect, 0), nil
	}
	t := Transition{Round: r.Index, NextRound: -1, Total: s.Total}
	if r.Revealed < len(r.Hints) {
		t.NewHint = r.Hints[r.Revealed]
		r.Revealed++
	}
	r.BlurLevel = s.Descriptor.BlurAt(r.Attempts)
	t.BlurLevel = r.BlurLevel
	return t, nil
}

func (s *Session) pick(r *Round, choice int) (Transition, error) {
	if choice < 0 || choice >= len(r.Movies) {
		return Transition{}, ErrInvalidPick
	}
	r.Picked = choice

	switch s.Descriptor.Kind {
	case KindVersus:
		other := r.Movies[1-choice]
		if evaluate.HigherOrEqual(r.Movies[choice].VoteAverage, other.VoteAverage) {
			return s.resolve(r, OutcomeCorrect, s.Descriptor.Points(0)), nil
		}
		return s.resolve(r, OutcomeIncorrect, 0), nil
	case KindImpostor:
		if choice == r.Answer {
			return s.resolve(r, OutcomeCorrect, s.Descriptor.Points(0)), nil
		}
		return s.resolve(r, OutcomeIncorrect, 0), nil
	default:
		s.advancing = append(s.advancing, r.Movies[choice])
		return s.resolve(r, OutcomeAdvanced, 0), nil
	}
}

// resolve passes through round_resolved and activates the next round or ends the session.
func (s *Session) resolve(r *Round, outcome Outcome, points int) Transition {
	r.Outcome = outcome
	r.Points = points
	r.Revealed = len(r.Hints)
	r.BlurLevel = s.Descriptor.BlurAt(len(s.Descriptor.BlurSchedule))
	s.Total += points
	s.State = StateRoundResolved

	t := Transition{
		Round:     r.Index,
		Correct:   outcome == OutcomeCorrect,
		Resolved:  true,
		Outcome:   outcome,
		Points:    points,
		BlurLevel: r.BlurLevel,
		NextRound: -1,
	}

	if s.Descriptor.Kind == KindBracket && r.Index == s.levelEnd {
		if len(s.advancing) == 1 {
			winner := s.advancing[0]
			s.Winner = &winner
		} else {
			s.appendLevel(append([]domain.Movie(nil), s.advancing...))
		}
	}

	if r.Index+1 < len(s.Rounds) {
		s.activate(r.Index + 1)
		t.NextRound = s.Current
	} else {
		s.State = StateSessionEnded
		t.Ended = true
	}
	t.Total = s.Total
	return t
}

// Ended reports whether the last round resolved.
func (s *Session) Ended() bool { return s.State == StateSessionEnded }
