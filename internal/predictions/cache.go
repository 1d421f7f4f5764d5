// Package predictions provides caching for race predictions.
package predictions

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// cacheKey identifies one race's prediction under one model version
func cacheKey(raceID, modelVersion string) string {
	return fmt.Sprintf("%s:%s", raceID, modelVersion)
}

// CachedClient wraps a Client with an in-memory TTL cache. Predictions
// are immutable for a given model version, so a hit never goes stale
// within the TTL.
type CachedClient struct {
	inner        Client
	cache        *cache.Cache
	ttl          time.Duration
	modelVersion string

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedClient creates a caching wrapper around an inference client
func NewCachedClient(inner Client, ttl time.Duration, modelVersion string) *CachedClient {
	return &CachedClient{
		inner:        inner,
		cache:        cache.New(ttl, ttl*2),
		ttl:          ttl,
		modelVersion: modelVersion,
	}
}

// GetRacePrediction returns the cached prediction or fetches it
func (cc *CachedClient) GetRacePrediction(ctx context.Context, raceID string) (*RacePrediction, error) {
	key := cacheKey(raceID, cc.modelVersion)

	if cached, found := cc.cache.Get(key); found {
		if pred, ok := cached.(*RacePrediction); ok {
			cc.recordHit(true)
			return pred, nil
		}
	}
	cc.recordHit(false)

	pred, err := cc.inner.GetRacePrediction(ctx, raceID)
	if err != nil {
		return nil, err
	}

	cc.cache.Set(key, pred, cc.ttl)
	return pred, nil
}

// HealthCheck delegates to the underlying client
func (cc *CachedClient) HealthCheck(ctx context.Context) error {
	return cc.inner.HealthCheck(ctx)
}

// Invalidate removes one race's cached prediction
func (cc *CachedClient) Invalidate(raceID string) {
	cc.cache.Delete(cacheKey(raceID, cc.modelVersion))
}

// Clear flushes the entire cache
func (cc *CachedClient) Clear() {
	cc.cache.Flush()

	cc.mu.Lock()
	cc.hitCount = 0
	cc.missCount = 0
	cc.mu.Unlock()
}

// Stats returns cache hit statistics
func (cc *CachedClient) Stats() (hits, misses uint64, ratio float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	hits = cc.hitCount
	misses = cc.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached predictions
func (cc *CachedClient) ItemCount() int {
	return cc.cache.ItemCount()
}

func (cc *CachedClient) recordHit(hit bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if hit {
		cc.hitCount++
	} else {
		cc.missCount++
	}
}
