// Package engine runs game sessions as a pure state machine. It performs no
// I/O and keeps no clock; timeouts arrive as events like any other input.
package engine

import (
	"time"

	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/evaluate"
)

// Kind selects the round loop a mode runs.
type Kind int

const (
	// KindLadder rounds take typed guesses against a hint ladder.
	KindLadder Kind = iota
	// KindVersus rounds pick the higher rated of two movies.
	KindVersus
	// KindImpostor rounds pick the odd one out of a fixed set.
	KindImpostor
	// KindBracket rounds pick the movie that advances in a single elimination bracket.
	KindBracket
)

func (k Kind) String() string {
	switch k {
	case KindLadder:
		return "ladder"
	case KindVersus:
		return "versus"
	case KindImpostor:
		return "impostor"
	case KindBracket:
		return "bracket"
	default:
		return "unknown"
	}
}

// TextInput reports whether rounds of this kind accept typed guesses.
func (k Kind) TextInput() bool { return k == KindLadder }

// Descriptor parametrises the engine for one mode.
type Descriptor struct {
	Mode   domain.Mode
	Kind   Kind
	Rounds int
	// AttemptBudget is the number of guesses a round allows and the ceiling of its points.
	AttemptBudget int
	// InitialHints are revealed when a round becomes active.
	InitialHints int
	// BlurSchedule is indexed by attempts used; it must be strictly decreasing.
	BlurSchedule []int
	// RoundTimeout is zero for modes without a clock.
	RoundTimeout time.Duration
	Match        evaluate.Matcher
}

// Points returns the score of a correctly resolved round after attempts failed guesses.
func (d Descriptor) Points(attempts int) int {
	switch d.Kind {
	case KindLadder:
		return max(0, d.AttemptBudget-attempts)
	case KindVersus, KindImpostor:
		return 1
	default:
		return 0
	}
}

// BlurAt returns the blur level after attempts failed guesses.
func (d Descriptor) BlurAt(attempts int) int {
	if len(d.BlurSchedule) == 0 {
		return 0
	}
	if attempts >= len(d.BlurSchedule) {
		return d.BlurSchedule[len(d.BlurSchedule)-1]
	}
	return d.BlurSchedule[attempts]
}

const (
	VersusRounds        = 10
	BlurRounds          = 5
	WhoAmIRounds        = 1
	ImpostorRounds      = 10
	ImpostorRealCredits = 4
	LadderAttemptBudget = 5
	BlurRoundTimeout    = 20 * time.Second
)

var descriptors = map[domain.Mode]Descriptor{
	domain.ModeVersus: {
		Mode:          domain.ModeVersus,
		Kind:          KindVersus,
		Rounds:        VersusRounds,
		AttemptBudget: 1,
	},
	domain.ModeBlur: {
		Mode:          domain.ModeBlur,
		Kind:          KindLadder,
		Rounds:        BlurRounds,
		AttemptBudget: LadderAttemptBudget,
		BlurSchedule:  []int{24, 18, 12, 7, 3, 0},
		RoundTimeout:  BlurRoundTimeout,
		Match:         evaluate.Tolerant,
	},
	domain.ModeWhoAmI: {
		Mode:          domain.ModeWhoAmI,
		Kind:          KindLadder,
		Rounds:        WhoAmIRounds,
		AttemptBudget: LadderAttemptBudget,
		InitialHints:  1,
		Match:         evaluate.Strict,
	},
	domain.ModeImpostor: {
		Mode:          domain.ModeImpostor,
		Kind:          KindImpostor,
		Rounds:        ImpostorRounds,
		AttemptBudget: 1,
	},
	domain.ModeTournament: {
		Mode:          domain.ModeTournament,
		Kind:          KindBracket,
		AttemptBudget: 1,
	},
}

// Lookup returns the descriptor of mode.
func Lookup(mode domain.Mode) (Descriptor, error) {
	d, ok := descriptors[mode]
	if !ok {
		return Descriptor{}, domain.ErrUnknownMode
	}
	return d, nil
}
