package refdata

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

// Cached memoises successful lookups of an underlying provider. Misses are
// not cached so newly published mappings become visible immediately.
type Cached struct {
	next  Provider
	cache gcache.Cache
	ttl   time.Duration
}

// NewCached wraps next with an LRU cache of size entries expiring after ttl.
func NewCached(next Provider, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: gcache.New(size).LRU().Build(),
		ttl:   ttl,
	}
}

func (c *Cached) Lookup(ctx context.Context, set ValueSet, code string) (string, error) {
	key := string(set) + "|" + code
	if v, err := c.cache.Get(key); err == nil {
		if mapped, ok := v.(string); ok {
			return mapped, nil
		}
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return "", err
	}

	mapped, err := c.next.Lookup(ctx, set, code)
	if err != nil {
		return "", err
	}
	if c.ttl > 0 {
		_ = c.cache.SetWithExpire(key, mapped, c.ttl)
	} else {
		_ = c.cache.Set(key, mapped)
	}
	return mapped, nil
}
