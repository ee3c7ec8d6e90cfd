package discovery

import (
	"strings"
	"testing"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseComposer_BadgesAndSummary(t *testing.T) {
	composer := NewResponseComposer()
	candidates := []discovery.RecipeCandidate{
		testutil.NewCandidate(1, "Skillet Gnocchi").WithMinutes(20).Easy().OnePot().WithPantryMatches(2).Build(),
		testutil.NewCandidate(2, "Braised Short Ribs").WithMinutes(40).KidFriendly().LeftoverFriendly().Build(),
	}

	resp := composer.Compose(candidates, discovery.IntentResult{Intent: discovery.IntentRecipeSearch}, discovery.VariationDecision{})

	require.Len(t, resp.Recipes, 2)
	assert.Equal(t, []string{"easy", "one-pot", "quick", "uses 2 pantry items"}, resp.Recipes[0].Badges)
	assert.Equal(t, []string{"kid-friendly", "leftover-friendly"}, resp.Recipes[1].Badges)

	assert.Equal(t, "Found 2 recipes averaging 30 minutes (1 easy, 1 one-pot and 1 kid-friendly)", resp.Summary)
	assert.Equal(t, 2, resp.Stats.Count)
	assert.InDelta(t, 30.0, resp.Stats.AverageMinutes, 1e-9)
	assert.Empty(t, resp.VariationNotice)
	assert.Equal(t, "Here are 2 recipes you haven't seen yet", resp.Message)
	assert.False(t, resp.ResetOffered)
}

func TestResponseComposer_VariationNotice(t *testing.T) {
	composer := NewResponseComposer()
	candidates := []discovery.RecipeCandidate{
		testutil.NewCandidate(11, "Chicken Tinga").WithMinutes(30).Build(),
	}
	variation := discovery.VariationDecision{
		IsRepeat:   true,
		Tier:       discovery.TierCuisineExploration,
		Ingredient: "chicken",
		Modifier:   "mexican",
	}

	resp := composer.Compose(candidates, discovery.IntentResult{}, variation)

	assert.Equal(t, "Showing Mexican-style dishes this time", resp.VariationNotice)
	assert.True(t, strings.HasPrefix(resp.Message, resp.VariationNotice))
	assert.Equal(t, "Mexican take on chicken; ready in 30 minutes; quick", resp.Recipes[0].Explanations)
}

func TestResponseComposer_NoticePerTier(t *testing.T) {
	tests := []struct {
		tier int
		want string
	}{
		{discovery.TierAlternativeIngredient, "Trying alternatives to chicken this time"},
		{discovery.TierSeasonal, "Adding seasonal ideas"},
		{discovery.TierDiscovery, "Showing something different"},
	}

	for _, tt := range tests {
		t.Run(discovery.TierName(tt.tier), func(t *testing.T) {
			got := variationNotice(discovery.VariationDecision{Tier: tt.tier, Ingredient: "chicken"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseComposer_KeepsStoreExplanation(t *testing.T) {
	c := testutil.NewCandidate(1, "Lemon Chicken").Build()
	c.Explanation = "Matches chicken"

	resp := NewResponseComposer().Compose([]discovery.RecipeCandidate{c}, discovery.IntentResult{}, discovery.VariationDecision{})
	assert.Equal(t, "Matches chicken", resp.Recipes[0].Explanations)
}

func TestResponseComposer_Exhausted(t *testing.T) {
	variation := discovery.VariationDecision{
		NormalizedQuery: "chicken",
		IsRepeat:        true,
		Tier:            discovery.TierDiscovery,
		Ingredient:      "chicken",
		Exhausted:       true,
	}

	resp := NewResponseComposer().Compose(nil, discovery.IntentResult{}, variation)

	assert.NotNil(t, resp.Recipes)
	assert.Empty(t, resp.Recipes)
	assert.True(t, resp.Exhausted)
	assert.True(t, resp.ResetOffered)
	assert.Contains(t, strings.ToLower(resp.Message), "reset")
	assert.Contains(t, resp.Message, "chicken")
	assert.Empty(t, resp.VariationNotice)
	assert.GreaterOrEqual(t, len(resp.Suggestions), 2)
	assert.LessOrEqual(t, len(resp.Suggestions), 3)
	assert.Equal(t, "turkey recipes", resp.Suggestions[0])
}

func TestResponseComposer_NoResultsAlwaysExplains(t *testing.T) {
	resp := NewResponseComposer().Compose([]discovery.RecipeCandidate{}, discovery.IntentResult{}, discovery.VariationDecision{NormalizedQuery: "xyz"})

	assert.NotEmpty(t, resp.Message)
	assert.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "No recipes found", resp.Summary)
	assert.False(t, resp.ResetOffered)
}

func TestResponseComposer_IntentLeadIns(t *testing.T) {
	candidates := []discovery.RecipeCandidate{testutil.NewCandidate(1, "Sheet Pan Chicken").Build()}

	plan := NewResponseComposer().Compose(candidates, discovery.IntentResult{Intent: discovery.IntentMealPlanning}, discovery.VariationDecision{})
	assert.Equal(t, "Here is 1 recipe to build your plan around", plan.Message)

	guide := NewResponseComposer().Compose(candidates, discovery.IntentResult{Intent: discovery.IntentGuidance}, discovery.VariationDecision{})
	assert.Equal(t, "Here is 1 recipe to practice with", guide.Message)
	assert.Equal(t, "Found 1 recipe averaging 30 minutes", guide.Summary)
}
