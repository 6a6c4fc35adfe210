package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"movie-trivia-service/internal/app"
	"movie-trivia-service/internal/domain"
)

type startRequest struct {
	Tournament *domain.TournamentSettings `json:"tournament,omitempty"`
}

type guessRequest struct {
	Round int    `json:"round"`
	Text  string `json:"text"`
}

type pickRequest struct {
	Round  int `json:"round"`
	Choice int `json:"choice"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(chi.URLParam(r, "mode"))
	if !mode.Valid() {
		writeError(w, r, domain.ErrUnknownMode)
		return
	}
	var req startRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.svc.Games.Start(r.Context(), app.StartRequest{
		Mode:       mode,
		PlayerID:   playerID(r),
		Tournament: req.Tournament,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Games.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := s.svc.Games.Guess(r.Context(), chi.URLParam(r, "id"), req.Round, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := s.svc.Games.Pick(r.Context(), chi.URLParam(r, "id"), req.Round, req.Choice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.svc.Games.Abandon(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(chi.URLParam(r, "mode"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.Leaderboard.Top(r.Context(), mode, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode, "entries": entries})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	titles, err := s.svc.Games.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": titles})
}

func (s *Server) handleHallOfFame(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.Games.HallOfFame(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HallOfFameEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
