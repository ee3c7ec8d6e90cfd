package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

var january = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// VariationEngineTestSuite walks the tier ladder over a memory session store
type VariationEngineTestSuite struct {
	suite.Suite
	ctx        context.Context
	sessions   *memory.SessionStore
	engine     *VariationEngine
	classifier *IntentClassifier
}

func (s *VariationEngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := zaptest.NewLogger(s.T())
	s.sessions = memory.NewSessionStore(memory.SessionStoreConfig{TTL: time.Hour, MaxShownIDs: 100, Shards: 4}, logger)
	s.engine = NewVariationEngine(s.sessions, logger).WithClock(func() time.Time { return january })
	s.classifier = NewIntentClassifier()
}

func (s *VariationEngineTestSuite) decide(query string) discovery.VariationDecision {
	return s.engine.Decide(s.ctx, "s1", query, s.classifier.Classify(query))
}

func (s *VariationEngineTestSuite) record(d discovery.VariationDecision) {
	s.Require().NoError(s.sessions.RecordSearch(s.ctx, "s1", discovery.SearchHistoryEntry{
		Query:      d.NormalizedQuery,
		Timestamp:  january,
		Tier:       d.Tier,
		Ingredient: d.Ingredient,
		Modifier:   d.Modifier,
		Exhausted:  d.Exhausted,
	}))
}

func (s *VariationEngineTestSuite) TestFirstSearchIsTierZero() {
	d := s.decide("Chicken Recipes")

	s.Equal(discovery.TierNone, d.Tier)
	s.False(d.IsRepeat)
	s.False(d.Exhausted)
	s.Equal("chicken", d.NormalizedQuery)
	s.Equal([]string{"chicken"}, d.Terms)
	s.Empty(d.ExcludeIDs)
}

func (s *VariationEngineTestSuite) TestTierLadderForIngredient() {
	first := s.decide("chicken")
	s.record(first)

	alt := s.decide("show me chicken recipes")
	s.Equal(discovery.TierAlternativeIngredient, alt.Tier)
	s.True(alt.IsRepeat)
	s.Equal([]string{"turkey", "duck", "cornish hen"}, alt.Terms)
	s.NotContains(alt.Terms, "chicken")
	s.record(alt)

	cuisine := s.decide("chicken")
	s.Equal(discovery.TierCuisineExploration, cuisine.Tier)
	s.Equal("italian", cuisine.Modifier)
	s.Equal([]string{"chicken", "italian"}, cuisine.Required)
	s.record(cuisine)

	seasonal := s.decide("chicken")
	s.Equal(discovery.TierSeasonal, seasonal.Tier)
	s.Equal("winter", seasonal.Modifier)
	s.Equal([]string{"chicken"}, seasonal.Required)
	s.Contains(seasonal.Terms, "hearty")
	s.record(seasonal)

	disc := s.decide("chicken")
	s.Equal(discovery.TierDiscovery, disc.Tier)
	s.Equal([]string{"soup"}, disc.Terms)
	s.Empty(disc.Required)
	s.False(disc.Exhausted)
	s.record(disc)

	done := s.decide("chicken")
	s.True(done.Exhausted)
	s.True(done.IsRepeat)
	s.NotEmpty(done.Message)
}

func (s *VariationEngineTestSuite) TestSkipsAlternativeTierWithoutIngredient() {
	s.record(s.decide("soup"))

	d := s.decide("soup")
	s.Equal(discovery.TierCuisineExploration, d.Tier)
	s.Equal([]string{"italian"}, d.Required)
}

func (s *VariationEngineTestSuite) TestCuisineRotationSkipsUsedAndOwnCuisine() {
	s.Require().NoError(s.sessions.RecordSearch(s.ctx, "s1", discovery.SearchHistoryEntry{
		Query: "chicken", Timestamp: january, Tier: discovery.TierCuisineExploration,
		Ingredient: "chicken", Modifier: "italian",
	}))

	// an earlier cuisine pass on the same ingredient under another query counts
	s.record(s.decide("asian chicken"))
	d := s.decide("asian chicken")
	s.Require().Equal(discovery.TierAlternativeIngredient, d.Tier)
	s.record(d)

	d = s.decide("asian chicken")
	s.Equal(discovery.TierCuisineExploration, d.Tier)
	s.Equal("mexican", d.Modifier)
}

func (s *VariationEngineTestSuite) TestExhaustedIsSticky() {
	s.Require().NoError(s.sessions.RecordSearch(s.ctx, "s1", discovery.SearchHistoryEntry{
		Query: "tofu", Timestamp: january, Tier: discovery.TierDiscovery, Exhausted: true,
	}))

	d := s.decide("tofu")
	s.True(d.Exhausted)
}

func (s *VariationEngineTestSuite) TestExclusionsAreShownSet() {
	s.Require().NoError(s.sessions.RecordShown(s.ctx, "s1", []discovery.RecipeID{4, 5, 6}))

	d := s.decide("beef")
	s.Equal([]discovery.RecipeID{4, 5, 6}, d.ExcludeIDs)
}

func (s *VariationEngineTestSuite) TestResetRestoresFirstSearch() {
	s.record(s.decide("chicken"))
	s.Require().NoError(s.sessions.Reset(s.ctx, "s1"))

	d := s.decide("chicken")
	s.Equal(discovery.TierNone, d.Tier)
	s.False(d.IsRepeat)
}

func (s *VariationEngineTestSuite) TestEscalate() {
	intent := s.classifier.Classify("chicken")
	s.record(s.decide("chicken"))
	alt := s.decide("chicken")

	next := s.engine.Escalate(s.ctx, "s1", alt, intent)
	s.Equal(discovery.TierCuisineExploration, next.Tier)

	last := s.engine.Escalate(s.ctx, "s1", discovery.VariationDecision{
		NormalizedQuery: "chicken", Tier: discovery.TierDiscovery,
	}, intent)
	s.True(last.Exhausted)

	s.Equal(last, s.engine.Escalate(s.ctx, "s1", last, intent))
}

func (s *VariationEngineTestSuite) TestDiscoveryCategoryAvoidsIngredientAndRepeats() {
	s.Require().NoError(s.sessions.RecordSearch(s.ctx, "s1", discovery.SearchHistoryEntry{
		Query: "pasta", Timestamp: january, Tier: discovery.TierSeasonal, Ingredient: "pasta",
	}))
	s.Require().NoError(s.sessions.RecordSearch(s.ctx, "s1", discovery.SearchHistoryEntry{
		Query: "beans", Timestamp: january, Tier: discovery.TierDiscovery, Modifier: "soup",
	}))

	d := s.decide("pasta")
	s.Equal(discovery.TierDiscovery, d.Tier)
	s.Equal("salad", d.Modifier)
}

func TestVariationEngineTestSuite(t *testing.T) {
	suite.Run(t, new(VariationEngineTestSuite))
}

type failingSessions struct {
	outbound.SessionStore
}

func (failingSessions) GetOrCreate(context.Context, string) (*discovery.Session, error) {
	return nil, errors.New("connection reset")
}

func TestVariationEngine_SessionFailureDegradesToFirstSearch(t *testing.T) {
	engine := NewVariationEngine(failingSessions{}, zaptest.NewLogger(t))
	intent := NewIntentClassifier().Classify("chicken")

	d := engine.Decide(context.Background(), "s1", "chicken", intent)
	assert.Equal(t, discovery.TierNone, d.Tier)
	assert.False(t, d.Exhausted)

	next := engine.Escalate(context.Background(), "s1", discovery.VariationDecision{
		NormalizedQuery: "chicken",
		ExcludeIDs:      []discovery.RecipeID{1, 2},
	}, intent)
	require.Equal(t, discovery.TierAlternativeIngredient, next.Tier)
	assert.Equal(t, []discovery.RecipeID{1, 2}, next.ExcludeIDs)
}

func TestSeasonFor(t *testing.T) {
	assert.Equal(t, "winter", seasonFor(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)).name)
	assert.Equal(t, "spring", seasonFor(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)).name)
	assert.Equal(t, "summer", seasonFor(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)).name)
	assert.Equal(t, "autumn", seasonFor(time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)).name)
}

func TestJoinWithAnd(t *testing.T) {
	assert.Equal(t, "", joinWithAnd(nil))
	assert.Equal(t, "a", joinWithAnd([]string{"a"}))
	assert.Equal(t, "a, b and c", joinWithAnd([]string{"a", "b", "c"}))
}
