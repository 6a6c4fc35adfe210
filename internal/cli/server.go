package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"movie-trivia-service/internal/app"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/config"
	"movie-trivia-service/internal/infra/blob"
	"movie-trivia-service/internal/infra/memory"
	pgstore "movie-trivia-service/internal/infra/postgres"
	redisstore "movie-trivia-service/internal/infra/redis"
	"movie-trivia-service/internal/tmdb"
	transport "movie-trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	sessions app.SessionRepository
	scores   app.ScoreRepository
	profiles app.ProfileRepository
	accounts app.AccountRepository
	hall     app.HallOfFameRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "" {
		setupLogging(cfg.Log.Level)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("jwt secret not configured (auth.jwt_secret or JWT_SECRET)")
	}
	if cfg.TMDB.APIKey == "" {
		log.Warn().Msg("tmdb api key not configured, catalog requests will fail")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	var db *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgstore.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pgstore.OpenBun(cfg.Postgres.URL)
		defer db.Close()
	}

	st := buildStores(cfg, redisClient, pool, db)

	avatars, err := blob.NewDiskAvatarStore(avatarDir(cfg))
	if err != nil {
		return err
	}

	var provider catalog.Provider = tmdb.NewClient(tmdb.Options{
		APIKey:   cfg.TMDB.APIKey,
		BaseURL:  cfg.TMDB.BaseURL,
		Language: cfg.TMDB.Language,
		Timeout:  config.TTLDuration(cfg.TMDB.Timeout, 10*time.Second),
	})
	cacheTTL := config.TTLDuration(cfg.Catalog.CacheTTL, 6*time.Hour)
	if redisClient != nil {
		provider = redisstore.NewCatalogCache(redisClient, provider, cacheTTL)
	} else {
		provider = memory.NewCatalogCache(provider, cacheTTL)
	}

	scoreGateway := app.NewScoreGateway(st.scores)
	games := app.NewGameService(st.sessions, catalog.NewFetcher(provider), scoreGateway, st.hall)
	srv := transport.NewServer(transport.Services{
		Games:       games,
		Leaderboard: app.NewLeaderboardReader(st.scores, st.profiles),
		Auth:        app.NewAuthService(st.accounts, st.profiles, cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0)),
		Profiles:    app.NewProfileService(st.profiles, avatars),
	}, transport.Options{
		ClientOrigin:   cfg.Server.ClientOrigin,
		CookieName:     cfg.Auth.CookieName,
		SecureCookies:  cfg.Server.SecureCookies,
		RequestTimeout: config.TTLDuration(cfg.Server.RequestTimeout, 15*time.Second),
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, games, config.TTLDuration(cfg.Sessions.MaxAge, 2*time.Hour))

	go func() {
		log.Info().Str("port", finalPort).Bool("redis", redisClient != nil).Bool("postgres", pool != nil).Msg("starting trivia service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	games.Wait()
	return err
}

// buildStores picks Postgres for durable records and Redis for shared
// state when configured, falling back to process memory otherwise.
func buildStores(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool, db *bun.DB) stores {
	capacity := cfg.HallOfFame.Capacity
	if capacity <= 0 {
		capacity = memory.DefaultHallOfFameCapacity
	}

	st := stores{
		sessions: memory.NewSessionStore(),
		scores:   memory.NewScoreStore(),
		profiles: memory.NewProfileStore(),
		accounts: memory.NewAccountStore(),
		hall:     memory.NewHallOfFame(capacity),
	}
	if redisClient != nil {
		st.sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
		st.scores = redisstore.NewScoreStore(redisClient)
		st.hall = redisstore.NewHallOfFame(redisClient, capacity)
	}
	if pool != nil {
		st.scores = pgstore.NewScoreStore(pool)
		st.profiles = pgstore.NewProfileStore(pool)
		st.accounts = pgstore.NewAccountStore(db)
	}
	return st
}

func avatarDir(cfg config.Config) string {
	if cfg.Avatars.Dir != "" {
		return cfg.Avatars.Dir
	}
	return "data/avatars"
}

func sweepSessions(ctx context.Context, games *app.GameService, maxAge time.Duration) {
	interval := maxAge / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			games.SweepIdle(maxAge)
		}
	}
}
