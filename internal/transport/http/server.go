package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"movie-trivia-service/internal/app"
)

// Options tunes the HTTP surface.
type Options struct {
	ClientOrigin   string
	CookieName     string
	SecureCookies  bool
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.CookieName == "" {
		o.CookieName = "trivia_token"
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	return o
}

// Services are the use cases the router exposes.
type Services struct {
	Games       *app.GameService
	Leaderboard *app.LeaderboardReader
	Auth        *app.AuthService
	Profiles    *app.ProfileService
}

// Server bundles the router and the use cases behind it.
type Server struct {
	r    *chi.Mux
	svc  Services
	opts Options
	ws   *WSHandler
}

// NewServer installs middleware and registers routes.
func NewServer(svc Services, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{r: chi.NewRouter(), svc: svc, opts: opts}
	s.ws = NewWSHandler(svc.Games, opts.ClientOrigin)

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)
	s.r.Use(s.withOptionalAuth)

	// the socket outlives any request timeout
	s.r.Get("/ws", s.ws.ServeWS)
	s.r.Get("/avatars/{player}/{file}", s.handleAvatar)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))
		r.Use(jsonContentType)

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.With(requireAuth).Get("/me", s.handleMe)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", s.handleGetProfile)
			r.Put("/", s.handleUpdateProfile)
			r.Put("/avatar", s.handleUploadAvatar)
		})

		r.Get("/games/suggestions", s.handleSuggestions)
		r.Post("/games/{mode}/sessions", s.handleStartSession)
		r.Get("/games/{mode}/leaderboard", s.handleLeaderboard)
		r.Get("/tournament/hall-of-fame", s.handleHallOfFame)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/guess", s.handleGuess)
			r.Post("/pick", s.handlePick)
			r.Delete("/", s.handleAbandon)
		})
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: r.URL.Path})
	})
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.r }
