// Package cache provides a caching decorator for the recipe store
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"go.uber.org/zap"
)

const defaultTTL = 2 * time.Minute

// RecipeStore caches store reads that carry no exclusion list. Those are the
// first-page searches every new session issues, so they are shared across
// sessions; excluded reads are session specific and always go to the store.
type RecipeStore struct {
	next   outbound.RecipeStore
	cache  outbound.CacheRepository
	keys   *KeyBuilder
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ outbound.RecipeStore = (*RecipeStore)(nil)

// NewRecipeStore wraps next with a cache
func NewRecipeStore(next outbound.RecipeStore, cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *RecipeStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RecipeStore{
		next:   next,
		cache:  cache,
		keys:   NewKeyBuilder(),
		ttl:    ttl,
		logger: logger.Named("recipe-cache"),
	}
}

// Search serves cacheable queries from the cache and fills it on a miss
func (s *RecipeStore) Search(ctx context.Context, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error) {
	if len(query.ExcludeIDs) > 0 {
		return s.next.Search(ctx, query)
	}

	key := s.keys.BuildSearchKey(query)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached []discovery.RecipeCandidate
		if err := json.Unmarshal(data, &cached); err == nil {
			s.hits.Add(1)
			return cached, nil
		}
		s.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
		_ = s.cache.Delete(ctx, key)
	}
	s.misses.Add(1)

	results, err := s.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(results); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Debug("Failed to cache search results", zap.String("key", key), zap.Error(err))
		}
	}
	return results, nil
}

// Count caches counts for queries without exclusions
func (s *RecipeStore) Count(ctx context.Context, query discovery.RecipeQuery) (int, error) {
	if len(query.ExcludeIDs) > 0 {
		return s.next.Count(ctx, query)
	}

	key := s.keys.BuildCountKey(query)
	if data, err := s.cache.Get(ctx, key); err == nil {
		if n, err := strconv.Atoi(string(data)); err == nil {
			s.hits.Add(1)
			return n, nil
		}
	}
	s.misses.Add(1)

	n, err := s.next.Count(ctx, query)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, []byte(strconv.Itoa(n)), s.ttl); err != nil {
		s.logger.Debug("Failed to cache count", zap.String("key", key), zap.Error(err))
	}
	return n, nil
}

// Stats returns the cache hit and miss counters
func (s *RecipeStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
