package fetch

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a TTL cache of fragment bodies shared by any number of wrapped
// fetchers. Only successful fetches are stored.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates a cache whose entries live for ttl
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, 2*ttl)}
}

// Wrap returns a fetcher that consults the cache before calling next.
// When next implements Resolver, entries are keyed by the resolved location
// so the same file reached from different pages is fetched once.
func (c *Cache) Wrap(next Fetcher) Fetcher {
	return &cachedFetcher{cache: c, next: next}
}

// Len returns the number of cached entries, expired ones included
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Flush removes every entry
func (c *Cache) Flush() {
	c.store.Flush()
}

type cachedFetcher struct {
	cache *Cache
	next  Fetcher
}

func (f *cachedFetcher) Fetch(ctx context.Context, path string) (string, error) {
	key := path
	if r, ok := f.next.(Resolver); ok {
		resolved, err := r.Resolve(path)
		if err != nil {
			return "", err
		}
		key = resolved
	}

	if v, found := f.cache.store.Get(key); found {
		return v.(string), nil
	}

	body, err := f.next.Fetch(ctx, path)
	if err != nil {
		return "", err
	}

	f.cache.store.SetDefault(key, body)
	return body, nil
}
