package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
	"movie-trivia-service/internal/evaluate"
)

const (
	suggestionLimit     = 8
	suggestionPages     = 5
	suggestionMinVotes  = 1000
	sessionEndSaveLimit = 5 * time.Second
	suggestionRefresh   = time.Hour
)

// StartRequest selects what a new session plays.
type StartRequest struct {
	Mode     domain.Mode
	PlayerID string
	// Tournament is required for domain.ModeTournament.
	Tournament *domain.TournamentSettings
}

// GameService contains the game session use cases.
type GameService struct {
	sessions SessionRepository
	source   CandidateSource
	scores   *ScoreGateway
	hall     HallOfFameRepository
	now      func() time.Time
	schedule scheduleFunc
	newID    func() string

	// pending tracks end-of-session writes still in flight.
	pending sync.WaitGroup

	titlesMu sync.Mutex
	titles   []string
	titlesAt time.Time
}

func NewGameService(sessions SessionRepository, source CandidateSource, scores *ScoreGateway, hall HallOfFameRepository) *GameService {
	return &GameService{
		sessions: sessions,
		source:   source,
		scores:   scores,
		hall:     hall,
		now:      time.Now,
		schedule: afterFunc,
		newID:    uuid.NewString,
	}
}

// WithClock swaps the wall clock and the round timer, for tests.
func (s *GameService) WithClock(now func() time.Time, schedule func(d time.Duration, f func()) (stop func() bool)) *GameService {
	s.now = now
	s.schedule = schedule
	return s
}

// Start fetches candidates, builds the rounds and activates the first one.
// The session is only reachable once every fetch has finished.
func (s *GameService) Start(ctx context.Context, req StartRequest) (SessionView, error) {
	d, err := engine.Lookup(req.Mode)
	if err != nil {
		return SessionView{}, err
	}
	id := s.newID()

	var (
		game     *engine.Session
		settings *domain.TournamentSettings
	)
	if d.Kind == engine.KindBracket {
		if req.Tournament == nil {
			return SessionView{}, fmt.Errorf("%w: tournament settings required", domain.ErrInvalidInput)
		}
		valid, err := ValidateTournament(*req.Tournament)
		if err != nil {
			return SessionView{}, err
		}
		settings = &valid
		pool, err := s.source.Fetch(ctx, tournamentFilters(valid))
		if err != nil {
			return SessionView{}, err
		}
		if game, err = engine.NewBracket(id, d, pool); err != nil {
			return SessionView{}, err
		}
	} else {
		rounds, err := s.buildRounds(ctx, req.Mode)
		if err != nil {
			return SessionView{}, err
		}
		if game, err = engine.NewSession(id, d, rounds); err != nil {
			return SessionView{}, err
		}
	}

	live := newLiveSession(game, req.PlayerID, s.now, s.schedule)
	live.settings = settings
	live.onEnd = s.finishAsync
	live.onUpdate = s.refresh

	view, err := live.start()
	if err != nil {
		return SessionView{}, err
	}
	s.sessions.Save(live)
	log.Info().Str("session", id).Str("mode", string(req.Mode)).Str("player", req.PlayerID).Int("rounds", view.TotalRounds).Msg("session started")
	return view, nil
}

func (s *GameService) buildRounds(ctx context.Context, mode domain.Mode) ([]engine.Round, error) {
	switch mode {
	case domain.ModeVersus:
		return buildVersusRounds(ctx, s.source)
	case domain.ModeBlur:
		return buildLadderRounds(ctx, s.source, mode, blurFilters)
	case domain.ModeWhoAmI:
		return buildLadderRounds(ctx, s.source, mode, whoAmIFilters)
	case domain.ModeImpostor:
		return buildImpostorRounds(ctx, s.source)
	default:
		return nil, domain.ErrUnknownMode
	}
}

// Guess submits a typed title for round.
func (s *GameService) Guess(_ context.Context, sessionID string, round int, text string) (TransitionView, error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return TransitionView{}, domain.ErrSessionNotFound
	}
	return live.dispatch(engine.Guess(round, text))
}

// Pick submits a selection for round.
func (s *GameService) Pick(_ context.Context, sessionID string, round, choice int) (TransitionView, error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return TransitionView{}, domain.ErrSessionNotFound
	}
	return live.dispatch(engine.Pick(round, choice))
}

// Get returns the current state of a session.
func (s *GameService) Get(_ context.Context, sessionID string) (SessionView, error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	return live.Snapshot(), nil
}

// Subscribe returns a channel of session updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, sessionID string) (<-chan Update, func(), error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := live.subscribe()
	return ch, cancel, nil
}

// Abandon discards a session. Late timers and requests against it are ignored.
func (s *GameService) Abandon(_ context.Context, sessionID string) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	live.close()
	s.sessions.Delete(sessionID)
	log.Info().Str("session", sessionID).Msg("session abandoned")
}

// refresh rewrites the stored session after an event. A session discarded
// while the write was in flight is removed again.
func (s *GameService) refresh(live *LiveSession) {
	if live.Closed() {
		return
	}
	s.sessions.Save(live)
	if live.Closed() {
		s.sessions.Delete(live.ID())
	}
}

// SweepIdle discards sessions without events for more than maxAge and
// returns how many were removed.
func (s *GameService) SweepIdle(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, live := range s.sessions.List() {
		if live.LastActive().After(cutoff) {
			continue
		}
		live.close()
		s.sessions.Delete(live.ID())
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("swept idle sessions")
	}
	return removed
}

// finishAsync persists the outcome off the request that ended the session.
func (s *GameService) finishAsync(result SessionResult) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.finish(result)
	}()
}

// Wait blocks until every pending end-of-session write has finished.
func (s *GameService) Wait() {
	s.pending.Wait()
}

// finish persists the outcome of an ended session. Failures are logged and
// never reach the player.
func (s *GameService) finish(result SessionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionEndSaveLimit)
	defer cancel()

	logger := log.With().Str("session", result.SessionID).Str("mode", string(result.Mode)).Str("player", result.PlayerID).Logger()
	logger.Info().Int("total", result.Total).Msg("session ended")

	if result.Mode.Scored() && result.PlayerID != "" && s.scores != nil {
		if _, err := s.scores.Submit(ctx, result.Mode, result.PlayerID, result.Total); err != nil {
			logger.Error().Err(err).Msg("score not saved")
		}
	}
	if result.Winner != nil && s.hall != nil {
		entry := domain.HallOfFameEntry{
			SessionID: result.SessionID,
			PlayerID:  result.PlayerID,
			Movie:     *result.Winner,
			WonAt:     result.EndedAt,
		}
		if result.Settings != nil {
			entry.Settings = *result.Settings
		}
		if err := s.hall.Append(ctx, entry); err != nil {
			logger.Error().Err(err).Msg("hall of fame not updated")
		}
	}
}

// HallOfFame lists recent tournament winners, newest first.
func (s *GameService) HallOfFame(ctx context.Context, limit int) ([]domain.HallOfFameEntry, error) {
	if s.hall == nil {
		return nil, nil
	}
	return s.hall.List(ctx, limit)
}

// Suggestions autocompletes movie titles for typed-guess modes.
func (s *GameService) Suggestions(ctx context.Context, input string) ([]string, error) {
	s.titlesMu.Lock()
	titles, fresh := s.titles, s.now().Sub(s.titlesAt) < suggestionRefresh
	s.titlesMu.Unlock()

	if titles == nil || !fresh {
		fetched, err := s.source.Titles(ctx, suggestionPages, suggestionMinVotes)
		if err != nil {
			return nil, err
		}
		s.titlesMu.Lock()
		s.titles, s.titlesAt = fetched, s.now()
		s.titlesMu.Unlock()
		titles = fetched
	}
	return evaluate.Suggest(titles, input, suggestionLimit), nil
}
