package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Live sessions, with their timers and subscribers, stay in a local map.
// Redis holds a JSON snapshot per session under a TTL so other processes can
// see which sessions are alive and where they stand.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LiveSession),
	}
}

// Save registers the session and rewrites its snapshot, extending the TTL.
func (s *SessionStore) Save(session *app.LiveSession) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	s.publish(session)
}

func (s *SessionStore) Get(sessionID string) (*app.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), Key("session", sessionID)).Err()
}

func (s *SessionStore) List() []*app.LiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.LiveSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// Snapshot reads the stored snapshot of a session, which may be served by
// another process.
func (s *SessionStore) Snapshot(ctx context.Context, sessionID string) (app.SessionView, bool, error) {
	raw, err := s.client.Get(ctx, Key("session", sessionID)).Bytes()
	if err == redis.Nil {
		return app.SessionView{}, false, nil
	}
	if err != nil {
		return app.SessionView{}, false, err
	}
	var view app.SessionView
	if err := json.Unmarshal(raw, &view); err != nil {
		return app.SessionView{}, false, err
	}
	return view, true, nil
}

// best-effort: the local map stays authoritative
func (s *SessionStore) publish(session *app.LiveSession) {
	raw, err := json.Marshal(session.Snapshot())
	if err != nil {
		return
	}
	if err := s.client.Set(context.Background(), Key("session", session.ID()), raw, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session", session.ID()).Msg("session snapshot not stored")
	}
}
