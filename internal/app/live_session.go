package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
)

// SessionResult is handed to the end-of-session hook exactly once.
type SessionResult struct {
	SessionID string
	Mode      domain.Mode
	PlayerID  string
	Total     int
	Winner    *domain.Movie
	Settings  *domain.TournamentSettings
	EndedAt   time.Time
}

// scheduleFunc runs f after d and returns a function that cancels it.
type scheduleFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// LiveSession wraps an engine session with locking, subscribers and the round clock.
type LiveSession struct {
	id        string
	playerID  string
	settings  *domain.TournamentSettings
	createdAt time.Time
	now       func() time.Time
	schedule  scheduleFunc
	onEnd     func(SessionResult)
	onUpdate  func(*LiveSession)

	mu          sync.Mutex
	game        *engine.Session
	lastActive  time.Time
	deadline    time.Time
	stopTimer   func() bool
	closed      bool
	subscribers map[chan Update]struct{}
}

// NewLiveSession is exported for infrastructure layers and tests.
func NewLiveSession(game *engine.Session, playerID string) *LiveSession {
	return newLiveSession(game, playerID, time.Now, afterFunc)
}

func newLiveSession(game *engine.Session, playerID string, now func() time.Time, schedule scheduleFunc) *LiveSession {
	return &LiveSession{
		id:          game.ID,
		playerID:    playerID,
		createdAt:   now(),
		lastActive:  now(),
		now:         now,
		schedule:    schedule,
		game:        game,
		subscribers: make(map[chan Update]struct{}),
	}
}

// ID returns the session id.
func (s *LiveSession) ID() string { return s.id }

// Mode returns the game mode.
func (s *LiveSession) Mode() domain.Mode { return s.game.Descriptor.Mode }

// CreatedAt returns when the session was created.
func (s *LiveSession) CreatedAt() time.Time { return s.createdAt }

// LastActive returns when the session last accepted an event.
func (s *LiveSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// start activates the first round and arms its clock.
func (s *LiveSession) start() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.game.Start(); err != nil {
		return SessionView{}, err
	}
	s.armLocked(s.game.Current)
	return s.snapshotLocked(), nil
}

// dispatch applies ev and fans the result out. The hooks run after the
// lock is released; onEnd must not block.
func (s *LiveSession) dispatch(ev engine.Event) (TransitionView, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return TransitionView{}, domain.ErrSessionNotFound
	}
	t, err := s.game.Apply(ev)
	if err != nil {
		s.mu.Unlock()
		return TransitionView{}, err
	}
	s.lastActive = s.now()

	if t.Resolved {
		s.cancelTimerLocked()
		if t.NextRound >= 0 {
			s.armLocked(t.NextRound)
		}
	}
	view := transitionView(s.game, t)

	kind := UpdateHint
	switch {
	case t.Ended:
		kind = UpdateSessionEnded
	case t.Resolved:
		kind = UpdateRoundResolved
	}
	s.broadcastLocked(kind, &view)
	if t.Resolved && !t.Ended {
		s.broadcastLocked(UpdateRoundStarted, nil)
	}

	var result *SessionResult
	if t.Ended {
		result = &SessionResult{
			SessionID: s.id,
			Mode:      s.game.Descriptor.Mode,
			PlayerID:  s.playerID,
			Total:     s.game.Total,
			Winner:    s.game.Winner,
			Settings:  s.settings,
			EndedAt:   s.now(),
		}
	}
	onEnd, onUpdate := s.onEnd, s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(s)
	}
	if result != nil && onEnd != nil {
		onEnd(*result)
	}
	return view, nil
}

func (s *LiveSession) armLocked(round int) {
	timeout := s.game.Descriptor.RoundTimeout
	if timeout <= 0 || s.schedule == nil {
		return
	}
	s.deadline = s.now().Add(timeout)
	s.stopTimer = s.schedule(timeout, func() { s.expire(round) })
}

func (s *LiveSession) cancelTimerLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.deadline = time.Time{}
}

// expire delivers a timeout for round. A timer that lost the race with a
// guess addresses a round that is no longer active and is dropped.
func (s *LiveSession) expire(round int) {
	_, err := s.dispatch(engine.Timeout(round))
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrStaleEvent), errors.Is(err, domain.ErrSessionEnded), errors.Is(err, domain.ErrSessionNotFound):
		log.Debug().Str("session", s.id).Int("round", round).Msg("dropped stale round timer")
	default:
		log.Warn().Err(err).Str("session", s.id).Int("round", round).Msg("round timeout failed")
	}
}

// close discards the session: the clock stops and subscribers are released.
func (s *LiveSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelTimerLocked()
	s.broadcastLocked(UpdateAbandoned, nil)
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns the current player-facing state.
func (s *LiveSession) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Closed reports whether the session was discarded.
func (s *LiveSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ended reports whether the last round resolved.
func (s *LiveSession) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Ended()
}

func (s *LiveSession) subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	// the buffer is empty, so this never blocks; sending under the lock
	// keeps close from racing it
	ch <- Update{Type: UpdateSnapshot, Session: s.snapshotLocked()}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *LiveSession) broadcastLocked(kind string, t *TransitionView) {
	update := Update{Type: kind, Session: s.snapshotLocked(), Transition: t}
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// slow subscriber: drop its oldest update
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (s *LiveSession) snapshotLocked() SessionView {
	return sessionView(s.game, s.createdAt, s.deadline)
}
