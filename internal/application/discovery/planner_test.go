package discovery

import (
	"testing"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phaseNames(phases []discovery.SearchPhase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	return names
}

func TestPhasePlanner_FirstSearch(t *testing.T) {
	planner := NewPhasePlanner(3)
	intent := NewIntentClassifier().Classify("chicken")

	phases := planner.Plan(intent, discovery.VariationDecision{Terms: []string{"chicken"}})

	require.Equal(t, []string{
		discovery.PhasePrimary, discovery.PhaseFallback, discovery.PhaseBroad, discovery.PhaseUltraBroad,
	}, phaseNames(phases))

	assert.Equal(t, strategyDirect, phases[0].Strategy)
	assert.Equal(t, []string{"chicken"}, phases[0].Terms)
	assert.Equal(t, 3, phases[0].MinResults)

	assert.Equal(t, []string{"easy", "dinner", "weeknight"}, phases[1].Terms)
	assert.Equal(t, fallbackMinResults, phases[1].MinResults)

	assert.Equal(t, []string{"poultry"}, phases[2].Terms)
	assert.Equal(t, ultraBroadTerms, phases[3].Terms)
}

func TestPhasePlanner_VariationStrategyAndRequired(t *testing.T) {
	planner := NewPhasePlanner(3)
	intent := NewIntentClassifier().Classify("chicken")

	phases := planner.Plan(intent, discovery.VariationDecision{
		Tier:     discovery.TierCuisineExploration,
		Terms:    []string{"chicken"},
		Required: []string{"chicken", "italian"},
	})

	assert.Equal(t, "cuisine_exploration", phases[0].Strategy)
	assert.Equal(t, []string{"chicken", "italian"}, phases[0].Required)
	for _, p := range phases[1:] {
		assert.Empty(t, p.Required)
	}
}

func TestPhasePlanner_DiscoveryDropsIngredientFamily(t *testing.T) {
	planner := NewPhasePlanner(3)
	intent := NewIntentClassifier().Classify("chicken")

	phases := planner.Plan(intent, discovery.VariationDecision{Tier: discovery.TierDiscovery, Terms: []string{"soup"}})

	assert.Equal(t, []string{discovery.PhasePrimary, discovery.PhaseFallback, discovery.PhaseUltraBroad}, phaseNames(phases))
}

func TestPhasePlanner_ContextTermsAreDeduplicated(t *testing.T) {
	planner := NewPhasePlanner(0)
	intent := NewIntentClassifier().Classify("vegetarian dinner")

	phases := planner.Plan(intent, discovery.VariationDecision{Terms: []string{"vegetarian", "dinner"}})

	assert.Equal(t, 1, phases[0].MinResults)
	assert.Equal(t, []string{"healthy", "vegetarian", "light", "dinner"}, phases[1].Terms)
	assert.Equal(t, []string{"dinner"}, phases[2].Terms)
}

func TestPhasePlanner_ExhaustedHasNoPhases(t *testing.T) {
	assert.Empty(t, NewPhasePlanner(3).Plan(discovery.IntentResult{}, discovery.VariationDecision{Exhausted: true}))
}
