package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"movie-trivia-service/internal/catalog"
	"movie-trivia-service/internal/domain"
)

// CatalogCache decorates a catalog.Provider with a TTL cache so repeated
// sessions do not hit the metadata API for the same pages.
type CatalogCache struct {
	provider catalog.Provider
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedValue
}

type cachedValue struct {
	value     any
	expiresAt time.Time
}

func NewCatalogCache(provider catalog.Provider, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedValue),
	}
}

func (c *CatalogCache) Discover(ctx context.Context, q catalog.DiscoverQuery) (catalog.Page, error) {
	return load(c, "discover:"+q.Key(), func() (catalog.Page, error) {
		return c.provider.Discover(ctx, q)
	})
}

func (c *CatalogCache) MovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error) {
	return load(c, "movie:"+strconv.Itoa(movieID), func() (domain.MovieDetails, error) {
		return c.provider.MovieDetails(ctx, movieID)
	})
}

func (c *CatalogCache) PopularPeople(ctx context.Context, page int) (catalog.PeoplePage, error) {
	return load(c, "people:"+strconv.Itoa(page), func() (catalog.PeoplePage, error) {
		return c.provider.PopularPeople(ctx, page)
	})
}

func (c *CatalogCache) PersonMovieCredits(ctx context.Context, personID int) ([]domain.Movie, error) {
	return load(c, "credits:"+strconv.Itoa(personID), func() ([]domain.Movie, error) {
		return c.provider.PersonMovieCredits(ctx, personID)
	})
}

// load returns the cached value for key or collapses concurrent misses into
// one provider call. Errors are never cached.
func load[T any](c *CatalogCache, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.lookup(key); ok {
		return v.(T), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedValue{value: v, expiresAt: c.clock().Add(c.ttlWithJitterLocked())}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (c *CatalogCache) lookup(key string) (any, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.value, true
	}
	return nil, false
}

func (c *CatalogCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
