package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func executorCatalogue() *testutil.FakeRecipeStore {
	return testutil.NewFakeRecipeStore(
		testutil.NewCandidate(1, "Chicken Piccata").Build(),
		testutil.NewCandidate(2, "Easy Lentil Pot").Build(),
		testutil.NewCandidate(3, "Easy Weeknight Tacos").Build(),
		testutil.NewCandidate(4, "Popular Family Dinner").Build(),
	)
}

func standardPhases() []discovery.SearchPhase {
	return []discovery.SearchPhase{
		{Name: discovery.PhasePrimary, Strategy: strategyDirect, Terms: []string{"chicken"}, MinResults: 3},
		{Name: discovery.PhaseFallback, Strategy: strategyIntent, Terms: []string{"easy", "weeknight"}, MinResults: 2},
		{Name: discovery.PhaseUltraBroad, Strategy: strategyCatchAll, Terms: []string{"dinner"}, MinResults: 1},
	}
}

func TestSearchExecutor_AccumulatesAcrossPhases(t *testing.T) {
	store := executorCatalogue()
	executor := NewSearchExecutor(store, nil, ExecutorConfig{}, zaptest.NewLogger(t))

	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: standardPhases(), PageSize: 5})
	require.NoError(t, err)

	assert.Equal(t, []discovery.RecipeID{1, 3, 2}, discovery.CandidateIDs(result.Results))
	assert.Equal(t, discovery.PhaseFallback, result.PhaseUsed)
	require.Len(t, result.Attempts, 2)
	assert.False(t, result.Attempts[0].Success)
	assert.Equal(t, 1, result.Attempts[0].Count)
	assert.True(t, result.Attempts[1].Success)
	assert.Equal(t, 2, result.Attempts[1].Count)

	// the fallback phase excluded what the primary phase had found
	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []discovery.RecipeID{1}, calls[1].ExcludeIDs)
	assert.Equal(t, 4, calls[1].Limit)

	require.NotNil(t, result.Query)
	assert.Equal(t, []string{"easy", "weeknight"}, result.Query.Terms)
}

func TestSearchExecutor_ResultsNeverShrink(t *testing.T) {
	store := executorCatalogue()
	executor := NewSearchExecutor(store, nil, ExecutorConfig{}, zaptest.NewLogger(t))

	phases := []discovery.SearchPhase{
		{Name: discovery.PhasePrimary, Terms: []string{"chicken"}, MinResults: 5},
		{Name: discovery.PhaseFallback, Terms: []string{"nothing-matches"}, MinResults: 5},
		{Name: discovery.PhaseUltraBroad, Terms: []string{"dinner"}, MinResults: 5},
	}
	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: phases, PageSize: 5})
	require.NoError(t, err)

	assert.Equal(t, []discovery.RecipeID{1, 4}, discovery.CandidateIDs(result.Results))
	assert.Equal(t, discovery.PhaseUltraBroad, result.PhaseUsed)
	require.Len(t, result.Attempts, 3)
	assert.Equal(t, 0, result.Attempts[1].Count)
}

func TestSearchExecutor_StopsWhenPageIsFull(t *testing.T) {
	store := executorCatalogue()
	executor := NewSearchExecutor(store, nil, ExecutorConfig{}, zaptest.NewLogger(t))

	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: standardPhases(), PageSize: 1})
	require.NoError(t, err)

	assert.Equal(t, []discovery.RecipeID{1}, discovery.CandidateIDs(result.Results))
	assert.Equal(t, discovery.PhasePrimary, result.PhaseUsed)
	assert.Len(t, store.Calls(), 1)
}

func TestSearchExecutor_ExclusionExhausted(t *testing.T) {
	store := testutil.NewFakeRecipeStore(testutil.NewCandidate(1, "Chicken Piccata").Build())
	executor := NewSearchExecutor(store, nil, ExecutorConfig{}, zaptest.NewLogger(t))

	phases := []discovery.SearchPhase{{Name: discovery.PhasePrimary, Terms: []string{"chicken"}, MinResults: 1}}

	result, err := executor.Execute(context.Background(), ExecuteRequest{
		Phases:     phases,
		PageSize:   5,
		ExcludeIDs: []discovery.RecipeID{1},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.True(t, result.ExclusionExhausted)
	assert.Equal(t, discovery.PhaseNone, result.PhaseUsed)

	phases[0].Terms = []string{"beef"}
	result, err = executor.Execute(context.Background(), ExecuteRequest{
		Phases:     phases,
		PageSize:   5,
		ExcludeIDs: []discovery.RecipeID{1},
	})
	require.NoError(t, err)
	assert.False(t, result.ExclusionExhausted)
}

func TestSearchExecutor_SkipsTriedTermSets(t *testing.T) {
	store := executorCatalogue()
	executor := NewSearchExecutor(store, nil, ExecutorConfig{}, zaptest.NewLogger(t))
	tried := make(map[string]bool)
	seen := []discovery.RecipeID{1, 2, 3, 4}

	first, err := executor.Execute(context.Background(), ExecuteRequest{
		Phases:     standardPhases(),
		PageSize:   5,
		ExcludeIDs: seen,
		Tried:      tried,
	})
	require.NoError(t, err)
	assert.Empty(t, first.Results)
	assert.True(t, first.ExclusionExhausted)
	assert.Len(t, tried, 3)
	// three phases plus the unfiltered check
	require.Len(t, store.Calls(), 4)

	phases := standardPhases()
	phases[0].Terms = []string{"turkey"}
	second, err := executor.Execute(context.Background(), ExecuteRequest{
		Phases:              phases,
		PageSize:            5,
		ExcludeIDs:          seen,
		Tried:               tried,
		SkipUnfilteredCheck: true,
	})
	require.NoError(t, err)
	assert.Empty(t, second.Results)
	assert.False(t, second.ExclusionExhausted)
	require.Len(t, second.Attempts, 1)
	assert.Equal(t, []string{"turkey"}, second.Attempts[0].Terms)

	calls := store.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, []string{"turkey"}, calls[4].Terms)
}

func TestSearchExecutor_StoreFailureKeepsPartialResults(t *testing.T) {
	store := executorCatalogue()
	store.FailNext(nil, errors.New("connection refused"))
	metrics := &testutil.RecordingMetrics{}
	executor := NewSearchExecutor(store, metrics, ExecutorConfig{StoreRetries: 1}, zaptest.NewLogger(t))

	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: standardPhases(), PageSize: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrStoreUnavailable)
	assert.Equal(t, []discovery.RecipeID{1}, discovery.CandidateIDs(result.Results))
	assert.Equal(t, discovery.PhasePrimary, result.PhaseUsed)
	require.Len(t, result.Attempts, 2)
	assert.Contains(t, result.Attempts[1].Error, "connection refused")
	assert.Equal(t, 1, metrics.StoreErrs)
}

func TestSearchExecutor_RetriesTransientFailures(t *testing.T) {
	store := executorCatalogue()
	store.FailNext(errors.New("timeout"))
	executor := NewSearchExecutor(store, nil, ExecutorConfig{StoreRetries: 2, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))

	phases := []discovery.SearchPhase{{Name: discovery.PhasePrimary, Terms: []string{"chicken"}, MinResults: 1}}
	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: phases, PageSize: 5})

	require.NoError(t, err)
	assert.Equal(t, []discovery.RecipeID{1}, discovery.CandidateIDs(result.Results))
	assert.Len(t, store.Calls(), 2)
}

func TestSearchExecutor_StoreTimeout(t *testing.T) {
	store := executorCatalogue()
	store.SetDelay(200 * time.Millisecond)
	executor := NewSearchExecutor(store, nil, ExecutorConfig{StoreTimeout: 10 * time.Millisecond}, zaptest.NewLogger(t))

	phases := []discovery.SearchPhase{{Name: discovery.PhasePrimary, Terms: []string{"chicken"}, MinResults: 1}}
	result, err := executor.Execute(context.Background(), ExecuteRequest{Phases: phases, PageSize: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, result.Results)
	assert.Equal(t, discovery.PhaseNone, result.PhaseUsed)
}

func TestSearchExecutor_CancelledContextIsNotRetried(t *testing.T) {
	store := new(testutil.MockRecipeStore)
	store.On("Search", mock.Anything, mock.Anything).Return(nil, context.Canceled).Once()
	executor := NewSearchExecutor(store, nil, ExecutorConfig{StoreRetries: 3}, zaptest.NewLogger(t))

	phases := []discovery.SearchPhase{{Name: discovery.PhasePrimary, Terms: []string{"chicken"}, MinResults: 1}}
	_, err := executor.Execute(context.Background(), ExecuteRequest{Phases: phases, PageSize: 5})

	require.Error(t, err)
	store.AssertNumberOfCalls(t, "Search", 1)
}

func TestSearchExecutor_NothingToRun(t *testing.T) {
	executor := NewSearchExecutor(executorCatalogue(), nil, ExecutorConfig{}, zaptest.NewLogger(t))

	result, err := executor.Execute(context.Background(), ExecuteRequest{PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, discovery.PhaseNone, result.PhaseUsed)
	assert.NotNil(t, result.Results)

	result, err = executor.Execute(context.Background(), ExecuteRequest{Phases: standardPhases()})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
}

func TestSearchExecutor_Count(t *testing.T) {
	executor := NewSearchExecutor(executorCatalogue(), nil, ExecutorConfig{StoreTimeout: time.Second}, zaptest.NewLogger(t))

	n, err := executor.Count(context.Background(), discovery.RecipeQuery{Terms: []string{"easy"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
