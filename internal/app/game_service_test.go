package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"movie-trivia-service/internal/app"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
	"movie-trivia-service/internal/infra/memory"
)

func TestVersusStartAndPick(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if view.TotalRounds != engine.VersusRounds || view.State != engine.StateRoundActive {
		t.Fatalf("unexpected start view: %+v", view)
	}
	if view.Round == nil || len(view.Round.Movies) != 2 {
		t.Fatalf("expected two movies in first round, got %+v", view.Round)
	}
	if view.Round.Movies[0].Rating != nil {
		t.Fatalf("rating must stay hidden while the round is open")
	}

	// movie 1 is rated higher than movie 0
	tr, err := env.service.Pick(ctx, view.ID, 0, 1)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if !tr.Correct || !tr.Resolved || tr.Total != 1 || tr.NextRound != 1 {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if tr.Answer == nil || tr.Answer.Rating == nil {
		t.Fatalf("resolved transition should reveal the answer with its rating")
	}

	if _, err := env.service.Pick(ctx, view.ID, 0, 1); !errors.Is(err, engine.ErrStaleEvent) {
		t.Fatalf("expected stale event for a resolved round, got %v", err)
	}
	if _, err := env.service.Guess(ctx, view.ID, 1, "Heat"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected typed guess to be rejected in versus, got %v", err)
	}
}

func TestBlurHintsTimerAndStaleTimeout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeBlur, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if env.clock.armed() != 1 {
		t.Fatalf("expected one armed timer, got %d", env.clock.armed())
	}
	if view.Round.Deadline == nil || !view.Round.Deadline.Equal(env.clock.now().Add(engine.BlurRoundTimeout)) {
		t.Fatalf("expected deadline 20s ahead, got %v", view.Round.Deadline)
	}
	if view.Round.Movies[0].Title != "" {
		t.Fatalf("title must stay hidden while the round is open")
	}

	miss, err := env.service.Guess(ctx, view.ID, 0, "zzzz qqqq")
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if miss.Resolved || miss.NewHint == "" || miss.BlurLevel >= view.Round.BlurLevel {
		t.Fatalf("expected a hint and less blur after a miss, got %+v", miss)
	}

	hit, err := env.service.Guess(ctx, view.ID, 0, env.source.movies[0].Title)
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if !hit.Correct || hit.Points != engine.LadderAttemptBudget-1 {
		t.Fatalf("expected %d points on second attempt, got %+v", engine.LadderAttemptBudget-1, hit)
	}

	// round 1 times out
	env.clock.fire(1)
	got, _ := env.service.Get(ctx, view.ID)
	if got.Current != 2 || len(got.Results) != 2 || got.Results[1].Outcome != engine.OutcomeTimedOut {
		t.Fatalf("expected round 1 to time out, got %+v", got)
	}

	// the timer of round 0 lost the race with the guess
	env.clock.fire(0)
	again, _ := env.service.Get(ctx, view.ID)
	if again.Current != 2 || again.Total != got.Total {
		t.Fatalf("stale timer changed the session: %+v", again)
	}
}

func TestSessionEndSavesBestScore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeWhoAmI, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(view.Round.Hints) != 1 {
		t.Fatalf("expected first hint shown at start, got %v", view.Round.Hints)
	}

	tr, err := env.service.Guess(ctx, view.ID, 0, env.source.movies[0].Title)
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if !tr.Ended || tr.Total != engine.LadderAttemptBudget {
		t.Fatalf("expected session to end with full points, got %+v", tr)
	}
	env.service.Wait()

	best, err := env.scores.Best(ctx, "p1", domain.ModeWhoAmI)
	if err != nil {
		t.Fatalf("expected score saved: %v", err)
	}
	if best.Score != engine.LadderAttemptBudget {
		t.Fatalf("expected best %d, got %d", engine.LadderAttemptBudget, best.Score)
	}
	if _, err := env.service.Guess(ctx, view.ID, 0, "again"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ended session, got %v", err)
	}
}

func TestWhoAmIHidesPosterUntilResolved(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeWhoAmI, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	card := view.Round.Movies[0]
	if card.PosterPath != "" || card.Title != "" || card.ID != 0 {
		t.Fatalf("open whoami round leaks the answer: %+v", card)
	}

	tr, err := env.service.Guess(ctx, view.ID, 0, env.source.movies[0].Title)
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if tr.Answer == nil || tr.Answer.PosterPath == "" {
		t.Fatalf("resolved round should reveal the poster, got %+v", tr.Answer)
	}

	blur, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeBlur})
	if err != nil {
		t.Fatalf("start blur failed: %v", err)
	}
	if blur.Round.Movies[0].PosterPath == "" || blur.Round.BlurLevel == 0 {
		t.Fatalf("blur round should show a blurred poster, got %+v", blur.Round)
	}
	env.service.Wait()
}

// stalledScores holds every write until release is closed.
type stalledScores struct {
	*memory.ScoreStore
	release chan struct{}
}

func (s *stalledScores) Upsert(ctx context.Context, record domain.ScoreRecord) error {
	<-s.release
	return s.ScoreStore.Upsert(ctx, record)
}

func TestSessionEndDoesNotWaitForScoreWrite(t *testing.T) {
	ctx := context.Background()
	scores := &stalledScores{ScoreStore: memory.NewScoreStore(), release: make(chan struct{})}
	source := newFakeSource()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)}
	service := app.NewGameService(memory.NewSessionStore(), source, app.NewScoreGateway(scores), memory.NewHallOfFame(10)).
		WithClock(clock.now, clock.schedule)

	view, err := service.Start(ctx, app.StartRequest{Mode: domain.ModeWhoAmI, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done := make(chan app.TransitionView, 1)
	go func() {
		tr, _ := service.Guess(ctx, view.ID, 0, source.movies[0].Title)
		done <- tr
	}()
	select {
	case tr := <-done:
		if !tr.Ended {
			t.Fatalf("expected session ended, got %+v", tr)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("final guess blocked on the score write")
	}

	close(scores.release)
	service.Wait()
	best, err := scores.Best(ctx, "p1", domain.ModeWhoAmI)
	if err != nil || best.Score != engine.LadderAttemptBudget {
		t.Fatalf("expected score written after release, got %+v %v", best, err)
	}
}

func TestAnonymousSessionSkipsScore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeWhoAmI})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.service.Guess(ctx, view.ID, 0, env.source.movies[0].Title); err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	env.service.Wait()
	top, _ := env.scores.Top(ctx, domain.ModeWhoAmI, 10)
	if len(top) != 0 {
		t.Fatalf("anonymous play must not be stored, got %+v", top)
	}
}

func TestTournamentWinnerEntersHallOfFame(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{
		Mode:       domain.ModeTournament,
		PlayerID:   "p1",
		Tournament: &domain.TournamentSettings{Genre: "all", TotalMovies: 4},
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if view.Round.Label != "Semifinal" {
		t.Fatalf("expected semifinal label, got %q", view.Round.Label)
	}

	var tr app.TransitionView
	for round := 0; round < 3; round++ {
		if tr, err = env.service.Pick(ctx, view.ID, round, 0); err != nil {
			t.Fatalf("pick round %d: %v", round, err)
		}
	}
	if !tr.Ended {
		t.Fatalf("expected bracket to end after 3 matches")
	}
	env.service.Wait()

	final, _ := env.service.Get(ctx, view.ID)
	if final.Winner == nil || final.Winner.ID != env.source.movies[0].ID {
		t.Fatalf("unexpected winner: %+v", final.Winner)
	}
	hall, err := env.service.HallOfFame(ctx, 10)
	if err != nil {
		t.Fatalf("hall of fame: %v", err)
	}
	if len(hall) != 1 || hall[0].Movie.ID != env.source.movies[0].ID || hall[0].Settings.TotalMovies != 4 {
		t.Fatalf("unexpected hall of fame: %+v", hall)
	}
	top, _ := env.scores.Top(ctx, domain.ModeTournament, 10)
	if len(top) != 0 {
		t.Fatalf("tournaments are not scored, got %+v", top)
	}
}

func TestTournamentRejectsBadSettings(t *testing.T) {
	env := newTestEnv()
	_, err := env.service.Start(context.Background(), app.StartRequest{
		Mode:       domain.ModeTournament,
		Tournament: &domain.TournamentSettings{TotalMovies: 6},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestImpostorRounds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeImpostor, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if view.TotalRounds != engine.ImpostorRounds {
		t.Fatalf("expected %d rounds, got %d", engine.ImpostorRounds, view.TotalRounds)
	}
	if view.Round.Actor == "" || len(view.Round.Movies) != engine.ImpostorRealCredits+1 {
		t.Fatalf("unexpected impostor round: %+v", view.Round)
	}

	// the fake source always inserts the decoy first
	tr, err := env.service.Pick(ctx, view.ID, 0, 0)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if !tr.Correct || tr.Total != 1 {
		t.Fatalf("expected the decoy to be the right pick, got %+v", tr)
	}
}

func TestImpostorNeedsEnoughActors(t *testing.T) {
	env := newTestEnv()
	env.source.actors = env.source.actors[:3]

	_, err := env.service.Start(context.Background(), app.StartRequest{Mode: domain.ModeImpostor})
	if !errors.Is(err, domain.ErrInsufficientCandidates) {
		t.Fatalf("expected insufficient candidates, got %v", err)
	}
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	if _, err := env.service.Start(ctx, app.StartRequest{Mode: "quiz"}); !errors.Is(err, domain.ErrUnknownMode) {
		t.Fatalf("expected unknown mode, got %v", err)
	}

	env.source.err = fmt.Errorf("%w: boom", domain.ErrCatalogUnavailable)
	if _, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus}); !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if _, err := env.service.Get(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ch, cancel, err := env.service.Subscribe(ctx, view.ID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	if first := <-ch; first.Type != app.UpdateSnapshot {
		t.Fatalf("expected initial snapshot, got %s", first.Type)
	}

	if _, err := env.service.Pick(ctx, view.ID, 0, 0); err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	resolved := <-ch
	if resolved.Type != app.UpdateRoundResolved || resolved.Transition == nil || resolved.Transition.Round != 0 {
		t.Fatalf("expected round_resolved for round 0, got %+v", resolved)
	}
	if started := <-ch; started.Type != app.UpdateRoundStarted || started.Session.Current != 1 {
		t.Fatalf("expected round_started for round 1, got %+v", started)
	}
}

func TestAbandonDiscardsSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeBlur, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ch, cancel, _ := env.service.Subscribe(ctx, view.ID)
	defer cancel()
	<-ch

	env.service.Abandon(ctx, view.ID)

	if last := <-ch; last.Type != app.UpdateAbandoned {
		t.Fatalf("expected abandoned update, got %s", last.Type)
	}
	if _, open := <-ch; open {
		t.Fatalf("expected subscriber channel closed")
	}
	if env.clock.stopped() == 0 {
		t.Fatalf("expected round timer stopped")
	}

	// a timer that fires anyway is ignored
	env.clock.fire(0)
	if _, err := env.service.Get(ctx, view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if _, err := env.scores.Best(ctx, "p1", domain.ModeBlur); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("abandoned session must not record a score, got %v", err)
	}
}

func TestSweepIdleRemovesOldSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if n := env.service.SweepIdle(time.Hour); n != 0 {
		t.Fatalf("fresh session swept")
	}
	env.clock.advance(2 * time.Hour)
	if n := env.service.SweepIdle(time.Hour); n != 1 {
		t.Fatalf("expected one swept session, got %d", n)
	}
	if _, err := env.service.Get(ctx, view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected swept session gone, got %v", err)
	}
}

func TestSweepIdleKeepsActiveSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	env.clock.advance(50 * time.Minute)
	if _, err := env.service.Pick(ctx, view.ID, 0, 1); err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	env.clock.advance(50 * time.Minute)
	if n := env.service.SweepIdle(time.Hour); n != 0 {
		t.Fatalf("session in play must survive the sweep, swept %d", n)
	}
	if _, err := env.service.Get(ctx, view.ID); err != nil {
		t.Fatalf("expected session kept: %v", err)
	}
}

func TestSubscribeRacingAbandonNeverPanics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	for i := 0; i < 200; i++ {
		view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus})
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel, err := env.service.Subscribe(ctx, view.ID)
			if err != nil {
				return
			}
			defer cancel()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			env.service.Abandon(ctx, view.ID)
		}()
		wg.Wait()

		if _, err := env.service.Get(ctx, view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("iteration %d: expected abandoned session gone, got %v", i, err)
		}
	}
}

func TestPickRacingAbandonLeavesNoSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	for i := 0; i < 200; i++ {
		view, err := env.service.Start(ctx, app.StartRequest{Mode: domain.ModeVersus})
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = env.service.Pick(ctx, view.ID, 0, 1)
		}()
		go func() {
			defer wg.Done()
			env.service.Abandon(ctx, view.ID)
		}()
		wg.Wait()

		if _, err := env.service.Get(ctx, view.ID); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("iteration %d: abandoned session came back: %v", i, err)
		}
	}
}

func TestSuggestionsCacheTitles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.source.titles = []string{"The Matrix", "The Matrix Reloaded", "Heat", "Matrimonio"}

	got, err := env.service.Suggestions(ctx, "matrix")
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two suggestions, got %v", got)
	}
	_, _ = env.service.Suggestions(ctx, "heat")
	if env.source.titleCalls != 1 {
		t.Fatalf("expected titles cached, fetched %d times", env.source.titleCalls)
	}

	env.clock.advance(2 * time.Hour)
	_, _ = env.service.Suggestions(ctx, "heat")
	if env.source.titleCalls != 2 {
		t.Fatalf("expected titles refreshed, fetched %d times", env.source.titleCalls)
	}
}

type testEnv struct {
	service *app.GameService
	source  *fakeSource
	clock   *fakeClock
	scores  *memory.ScoreStore
}

func newTestEnv() *testEnv {
	source := newFakeSource()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)}
	scores := memory.NewScoreStore()
	service := app.NewGameService(memory.NewSessionStore(), source, app.NewScoreGateway(scores), memory.NewHallOfFame(10)).
		WithClock(clock.now, clock.schedule)
	return &testEnv{service: service, source: source, clock: clock, scores: scores}
}

var fakeTitles = []string{
	"Amelie", "Blade Runner", "Casablanca", "Dune", "Eraserhead", "Fargo", "Gladiator", "Heat",
	"Inception", "Jaws", "Kill Bill", "Labyrinth", "Memento", "Nosferatu", "Oldboy", "Psycho",
	"Quadrophenia", "Rocky", "Scarface", "Titanic", "Unforgiven", "Vertigo", "Whiplash", "Xanadu",
	"Yojimbo", "Zodiac", "Alien", "Brazil", "Chinatown", "Drive", "Elf", "Frozen", "Gravity",
	"Hereditary", "Interstellar", "Jumanji", "Klute", "Lucy", "Manhattan", "Network",
}

// fakeSource serves a fixed catalog. Intn always returns 0, so random picks
// are the first candidates and impostor decoys are inserted first.
type fakeSource struct {
	mu         sync.Mutex
	movies     []domain.Movie
	actors     []domain.Person
	titles     []string
	titleCalls int
	err        error
}

func newFakeSource() *fakeSource {
	s := &fakeSource{}
	for i, title := range fakeTitles {
		s.movies = append(s.movies, domain.Movie{
			ID:          i + 1,
			Title:       title,
			PosterPath:  fmt.Sprintf("/poster%d.jpg", i),
			VoteAverage: 3 + float64(i%10)/2,
			VoteCount:   5000,
			ReleaseDate: fmt.Sprintf("%d-06-01", 1970+i),
		})
	}
	for i := 0; i < engine.ImpostorRounds+2; i++ {
		s.actors = append(s.actors, domain.Person{ID: 1000 + i, Name: fmt.Sprintf("Actor %d", i), KnownForCount: 3})
	}
	return s
}

func (s *fakeSource) Fetch(_ context.Context, filters catalog.Filters) ([]domain.Movie, error) {
	if s.err != nil {
		return nil, s.err
	}
	if filters.Count > len(s.movies) {
		return nil, domain.ErrInsufficientCandidates
	}
	return append([]domain.Movie(nil), s.movies[:filters.Count]...), nil
}

func (s *fakeSource) EnrichDetails(_ context.Context, movies []domain.Movie) []domain.MovieDetails {
	out := make([]domain.MovieDetails, len(movies))
	for i := range movies {
		out[i] = domain.MovieDetails{
			Genres:   []string{"Drama"},
			Director: "Jane Doe",
			Tagline:  "Nothing is what it seems.",
			Cast:     []domain.CastMember{{ID: 1, Name: "Lead Actor"}},
		}
	}
	return out
}

func (s *fakeSource) PopularActors(_ context.Context, _, _ int) ([]domain.Person, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.actors, nil
}

func (s *fakeSource) Credits(_ context.Context, personID int) ([]domain.Movie, error) {
	credits := make([]domain.Movie, 0, 6)
	for i := 0; i < 6; i++ {
		id := personID*10 + i
		credits = append(credits, domain.Movie{ID: id, Title: fmt.Sprintf("Credit %d", id), PosterPath: "/c.jpg"})
	}
	return credits, nil
}

func (s *fakeSource) Titles(_ context.Context, _, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titleCalls++
	return s.titles, nil
}

func (s *fakeSource) Intn(int) int { return 0 }

// fakeClock records scheduled round timers so tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	timers []func()
	stops  int
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) schedule(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, f)
	return func() bool {
		c.mu.Lock()
		c.stops++
		c.mu.Unlock()
		return true
	}
}

func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	f := c.timers[i]
	c.mu.Unlock()
	f()
}

func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) stopped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}
