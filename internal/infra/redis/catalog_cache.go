package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
)

// CatalogCache stores provider responses as JSON under
// trivia:catalog:{sha1(request)} and falls back to the provider on a miss.
// Redis failures degrade to direct provider calls.
type CatalogCache struct {
	client   *redis.Client
	provider catalog.Provider
	ttl      time.Duration
	sf       singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogCache(client *redis.Client, provider catalog.Provider, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client:   client,
		provider: provider,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) Discover(ctx context.Context, q catalog.DiscoverQuery) (catalog.Page, error) {
	return load(ctx, c, "discover:"+q.Key(), func() (catalog.Page, error) {
		return c.provider.Discover(ctx, q)
	})
}

func (c *CatalogCache) MovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error) {
	return load(ctx, c, "movie:"+strconv.Itoa(movieID), func() (domain.MovieDetails, error) {
		return c.provider.MovieDetails(ctx, movieID)
	})
}

func (c *CatalogCache) PopularPeople(ctx context.Context, page int) (catalog.PeoplePage, error) {
	return load(ctx, c, "people:"+strconv.Itoa(page), func() (catalog.PeoplePage, error) {
		return c.provider.PopularPeople(ctx, page)
	})
}

func (c *CatalogCache) PersonMovieCredits(ctx context.Context, personID int) ([]domain.Movie, error) {
	return load(ctx, c, "credits:"+strconv.Itoa(personID), func() ([]domain.Movie, error) {
		return c.provider.PersonMovieCredits(ctx, personID)
	})
}

func load[T any](ctx context.Context, c *CatalogCache, request string, fetch func() (T, error)) (T, error) {
	key := catalogKey(request)
	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(v); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func lookup[T any](ctx context.Context, c *CatalogCache, key string) (T, bool) {
	var v T
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func catalogKey(request string) string {
	sum := sha1.Sum([]byte(request))
	return Key("catalog", hex.EncodeToString(sum[:]))
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
