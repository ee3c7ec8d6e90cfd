package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// FakeRecipeStore is an in-memory RecipeStore over a fixed catalogue.
// Terms match on word boundaries against title, cuisine, category and
// ingredients; results rank by matched term count, then ID.
type FakeRecipeStore struct {
	mu      sync.Mutex
	recipes []discovery.RecipeCandidate
	calls   []discovery.RecipeQuery
	// failures are returned, in order, by the next Search calls
	failures []error
	delay    time.Duration
}

var _ outbound.RecipeStore = (*FakeRecipeStore)(nil)

// NewFakeRecipeStore creates a fake store over recipes
func NewFakeRecipeStore(recipes ...discovery.RecipeCandidate) *FakeRecipeStore {
	return &FakeRecipeStore{recipes: recipes}
}

// FailNext makes the next len(errs) Search calls return errs in order
func (s *FakeRecipeStore) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// SetDelay makes every call block for d or until the context ends
func (s *FakeRecipeStore) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns the Search queries seen so far
func (s *FakeRecipeStore) Calls() []discovery.RecipeQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discovery.RecipeQuery(nil), s.calls...)
}

// Search implements outbound.RecipeStore
func (s *FakeRecipeStore) Search(ctx context.Context, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error) {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	delay := s.delay
	var fail error
	if len(s.failures) > 0 {
		fail, s.failures = s.failures[0], s.failures[1:]
	}
	s.mu.Unlock()

	if err := s.wait(ctx, delay); err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, fail
	}

	if query.Limit <= 0 {
		return []discovery.RecipeCandidate{}, nil
	}
	matched := s.match(query)
	if len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// Count implements outbound.RecipeStore
func (s *FakeRecipeStore) Count(ctx context.Context, query discovery.RecipeQuery) (int, error) {
	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()

	if err := s.wait(ctx, delay); err != nil {
		return 0, err
	}
	return len(s.match(query)), nil
}

func (s *FakeRecipeStore) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type scored struct {
	c     discovery.RecipeCandidate
	score int
}

func (s *FakeRecipeStore) match(query discovery.RecipeQuery) []discovery.RecipeCandidate {
	excluded := make(map[discovery.RecipeID]bool, len(query.ExcludeIDs))
	for _, id := range query.ExcludeIDs {
		excluded[id] = true
	}

	var hits []scored
	for _, c := range s.recipes {
		if excluded[c.ID] || !query.Filters.Matches(c) {
			continue
		}
		text := searchText(c)

		ok := true
		for _, r := range query.Required {
			if !discovery.ContainsTerm(text, r) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		score := 0
		for _, t := range query.Terms {
			if discovery.ContainsTerm(text, t) {
				score++
			}
		}
		if len(query.Terms) > 0 && score == 0 {
			continue
		}

		c.Score = float64(score)
		hits = append(hits, scored{c: c, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].c.ID < hits[j].c.ID
	})

	out := make([]discovery.RecipeCandidate, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}

func searchText(c discovery.RecipeCandidate) string {
	parts := append([]string{c.Title, c.Cuisine, c.Category, c.MealRole}, c.Ingredients...)
	return strings.Join(parts, " ")
}

// MockRecipeStore provides a testify mock of RecipeStore
type MockRecipeStore struct {
	mock.Mock
}

var _ outbound.RecipeStore = (*MockRecipeStore)(nil)

// Search searches for recipes
func (m *MockRecipeStore) Search(ctx context.Context, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]discovery.RecipeCandidate), args.Error(1)
}

// Count counts matching recipes
func (m *MockRecipeStore) Count(ctx context.Context, query discovery.RecipeQuery) (int, error) {
	args := m.Called(ctx, query)
	return args.Int(0), args.Error(1)
}

// MockCacheRepository provides a testify mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

var _ outbound.CacheRepository = (*MockCacheRepository)(nil)

// Get retrieves a value
func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Set stores a value
func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

// Delete removes a value
func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// Exists checks a key
func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// RecordingMetrics counts MetricsRecorder calls
type RecordingMetrics struct {
	outbound.NopMetrics

	mu        sync.Mutex
	Searches  []string
	Exhausted int
	Resets    int
	StoreErrs int
	active    int
	gaugeSets int
}

// SetActiveSessions records the latest gauge value
func (m *RecordingMetrics) SetActiveSessions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
	m.gaugeSets++
}

// ActiveSessions returns the latest gauge value and how often it was set
func (m *RecordingMetrics) ActiveSessions() (count, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.gaugeSets
}

// RecordSearch records a search outcome
func (m *RecordingMetrics) RecordSearch(phase string, tier int, outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, outcome)
}

// RecordExhausted counts exhausted responses
func (m *RecordingMetrics) RecordExhausted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Exhausted++
}

// RecordReset counts resets
func (m *RecordingMetrics) RecordReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets++
}

// RecordStoreCall counts failed store calls
func (m *RecordingMetrics) RecordStoreCall(op string, d time.Duration, err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreErrs++
}
