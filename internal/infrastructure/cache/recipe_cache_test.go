package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/discovery/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newFakeStore() *testutil.FakeRecipeStore {
	return testutil.NewFakeRecipeStore(
		testutil.NewCandidate(1, "Lemon Chicken").WithIngredients("chicken", "lemon").Build(),
		testutil.NewCandidate(2, "Chicken Curry").WithCuisine("indian").Build(),
		testutil.NewCandidate(3, "Beef Stew").Build(),
	)
}

func TestRecipeStore_CachesSearchWithoutExclusions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cached := NewRecipeStore(store, memory.NewCacheRepository(ctx, 0), time.Minute, zaptest.NewLogger(t))

	query := discovery.RecipeQuery{Terms: []string{"chicken"}, Limit: 10}

	first, err := cached.Search(ctx, query)
	require.NoError(t, err)
	second, err := cached.Search(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.Calls(), 1)

	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestRecipeStore_BypassesCacheWithExclusions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cached := NewRecipeStore(store, memory.NewCacheRepository(ctx, 0), time.Minute, zaptest.NewLogger(t))

	query := discovery.RecipeQuery{Terms: []string{"chicken"}, ExcludeIDs: []discovery.RecipeID{1}, Limit: 10}

	for i := 0; i < 3; i++ {
		results, err := cached.Search(ctx, query)
		require.NoError(t, err)
		assert.Equal(t, []discovery.RecipeID{2}, discovery.CandidateIDs(results))
	}
	assert.Len(t, store.Calls(), 3)
}

func TestRecipeStore_DistinctLimitsUseDistinctKeys(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cached := NewRecipeStore(store, memory.NewCacheRepository(ctx, 0), time.Minute, zaptest.NewLogger(t))

	one, err := cached.Search(ctx, discovery.RecipeQuery{Terms: []string{"chicken"}, Limit: 1})
	require.NoError(t, err)
	two, err := cached.Search(ctx, discovery.RecipeQuery{Terms: []string{"chicken"}, Limit: 2})
	require.NoError(t, err)

	assert.Len(t, one, 1)
	assert.Len(t, two, 2)
}

func TestRecipeStore_StoreErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.FailNext(errors.New("connection refused"))
	cached := NewRecipeStore(store, memory.NewCacheRepository(ctx, 0), time.Minute, zaptest.NewLogger(t))

	query := discovery.RecipeQuery{Terms: []string{"beef"}, Limit: 5}

	_, err := cached.Search(ctx, query)
	require.Error(t, err)

	results, err := cached.Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []discovery.RecipeID{3}, discovery.CandidateIDs(results))
}

func TestRecipeStore_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	repo := new(testutil.MockCacheRepository)
	repo.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	repo.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Minute).Return(errors.New("redis down"))

	cached := NewRecipeStore(store, repo, time.Minute, zaptest.NewLogger(t))

	results, err := cached.Search(ctx, discovery.RecipeQuery{Terms: []string{"chicken"}, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	n, err := cached.Count(ctx, discovery.RecipeQuery{Terms: []string{"chicken"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	repo.AssertExpectations(t)
}

func TestRecipeStore_CountIsCached(t *testing.T) {
	ctx := context.Background()
	cached := NewRecipeStore(newFakeStore(), memory.NewCacheRepository(ctx, 0), 0, zaptest.NewLogger(t))

	query := discovery.RecipeQuery{Terms: []string{"chicken"}}
	for i := 0; i < 2; i++ {
		n, err := cached.Count(ctx, query)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}

	hits, _ := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, defaultTTL, cached.ttl)
}

func TestKeyBuilder_FiltersChangeKey(t *testing.T) {
	kb := NewKeyBuilder()
	easy := true
	base := discovery.RecipeQuery{Terms: []string{"pasta"}, Limit: 10}
	filtered := base
	filtered.Filters.IsEasy = &easy

	assert.NotEqual(t, kb.BuildSearchKey(base), kb.BuildSearchKey(filtered))
	assert.Equal(t, kb.BuildSearchKey(base), kb.BuildSearchKey(base))
	assert.Contains(t, kb.BuildCountKey(base), "discovery:v1:count:")
}
