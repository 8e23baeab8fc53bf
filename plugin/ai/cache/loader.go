package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/focuspilot/plugin/ai/metrics"
)

// Loader wraps a CacheService miss path so that concurrent loads of the
// same key share one call.
type Loader struct {
	store CacheService
	group singleflight.Group
}

// NewLoader creates a loader over store.
func NewLoader(store CacheService) *Loader {
	return &Loader{store: store}
}

// Store returns the underlying cache.
func (l *Loader) Store() CacheService {
	return l.store
}

// LoadFunc produces a value and the TTL to cache it with.
// A non-positive TTL returns the value without caching it.
type LoadFunc[T any] func(ctx context.Context) (T, time.Duration, error)

// Load returns the cached value under key, or runs fn once among all
// concurrent callers for that key. hit reports whether the value came
// from the cache.
func Load[T any](ctx context.Context, l *Loader, key string, fn LoadFunc[T]) (value T, hit bool, err error) {
	var cached T
	if GetJSON(ctx, l.store, key, &cached) {
		metrics.CacheLookup(key, true)
		return cached, true, nil
	}
	metrics.CacheLookup(key, false)

	res, err, _ := l.group.Do(key, func() (any, error) {
		// A previous flight may have filled the key after our lookup.
		var cached T
		if GetJSON(ctx, l.store, key, &cached) {
			return cached, nil
		}

		v, ttl, err := fn(ctx)
		if err != nil {
			return v, err
		}
		if ttl > 0 {
			if err := SetJSON(ctx, l.store, key, v, ttl); err != nil {
				slog.Warn("cache: failed to store loaded value", "key", key, "error", err)
			}
		}
		return v, nil
	})
	if v, ok := res.(T); ok {
		value = v
	}
	return value, false, err
}
