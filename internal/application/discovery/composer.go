package discovery

import (
	"fmt"
	"math"
	"strings"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

const quickMinutes = 30

// ResponseComposer turns a candidate set into a user-facing response
type ResponseComposer struct{}

// NewResponseComposer creates a new response composer
func NewResponseComposer() *ResponseComposer {
	return &ResponseComposer{}
}

// Compose decorates candidates with badges and explanations and writes the
// summary. The response always carries a message, even with no recipes.
func (rc *ResponseComposer) Compose(candidates []discovery.RecipeCandidate, intent discovery.IntentResult, variation discovery.VariationDecision) discovery.UserResponse {
	resp := discovery.UserResponse{
		Recipes:   make([]discovery.ComposedRecipe, 0, len(candidates)),
		Exhausted: variation.Exhausted,
	}

	for _, c := range candidates {
		badges := badgesFor(c)
		resp.Recipes = append(resp.Recipes, discovery.ComposedRecipe{
			RecipeCandidate: c,
			Badges:          badges,
			Explanations:    explain(c, badges, variation),
		})
	}
	resp.Stats = statsFor(candidates)

	if variation.IsRepeat && !variation.Exhausted && variation.Tier > discovery.TierNone {
		resp.VariationNotice = variationNotice(variation)
	}

	switch {
	case variation.Exhausted:
		resp.ResetOffered = true
		resp.Message = exhaustedMessage(variation)
		resp.Suggestions = suggestionsFor(intent, variation)
		resp.Summary = "No new recipes left for this search"
	case len(candidates) == 0:
		resp.Message = "We couldn't find recipes for that. Try a broader search like an ingredient or a meal type."
		resp.Suggestions = suggestionsFor(intent, variation)
		resp.Summary = "No recipes found"
	default:
		resp.Summary = summaryFor(resp.Stats)
		resp.Message = leadIn(intent.Intent, len(candidates))
		if resp.VariationNotice != "" {
			resp.Message = resp.VariationNotice + ". " + resp.Message
		}
	}
	return resp
}

func badgesFor(c discovery.RecipeCandidate) []string {
	badges := []string{}
	if c.Flags.IsEasy {
		badges = append(badges, string(discovery.BadgeEasy))
	}
	if c.Flags.IsOnePot {
		badges = append(badges, string(discovery.BadgeOnePot))
	}
	if c.Flags.KidFriendly {
		badges = append(badges, string(discovery.BadgeKidFriendly))
	}
	if c.Flags.LeftoverFriendly {
		badges = append(badges, string(discovery.BadgeLeftoverFriendly))
	}
	if c.TotalMinutes > 0 && c.TotalMinutes <= quickMinutes {
		badges = append(badges, string(discovery.BadgeQuick))
	}
	if c.PantryMatches > 0 {
		badges = append(badges, fmt.Sprintf("uses %d pantry %s", c.PantryMatches, plural(c.PantryMatches, "item", "items")))
	}
	return badges
}

func explain(c discovery.RecipeCandidate, badges []string, variation discovery.VariationDecision) string {
	if c.Explanation != "" {
		return c.Explanation
	}

	var parts []string
	switch variation.Tier {
	case discovery.TierCuisineExploration:
		if variation.Ingredient != "" {
			parts = append(parts, fmt.Sprintf("%s take on %s", titleCase(variation.Modifier), variation.Ingredient))
		} else {
			parts = append(parts, fmt.Sprintf("%s style", titleCase(variation.Modifier)))
		}
	case discovery.TierAlternativeIngredient:
		if variation.Ingredient != "" {
			parts = append(parts, fmt.Sprintf("An alternative to %s", variation.Ingredient))
		}
	case discovery.TierSeasonal:
		parts = append(parts, fmt.Sprintf("In season for %s", variation.Modifier))
	case discovery.TierDiscovery:
		if !variation.Exhausted {
			parts = append(parts, "Something different")
		}
	}

	if c.TotalMinutes > 0 {
		parts = append(parts, fmt.Sprintf("ready in %d minutes", c.TotalMinutes))
	}
	if len(badges) > 0 {
		parts = append(parts, strings.Join(badges, ", "))
	}
	if len(parts) == 0 {
		return "Matches your search"
	}

	out := strings.Join(parts, "; ")
	return strings.ToUpper(out[:1]) + out[1:]
}

func statsFor(candidates []discovery.RecipeCandidate) discovery.ResponseStats {
	stats := discovery.ResponseStats{Count: len(candidates)}
	total, timed := 0, 0
	for _, c := range candidates {
		if c.TotalMinutes > 0 {
			total += c.TotalMinutes
			timed++
		}
		if c.Flags.IsEasy {
			stats.Easy++
		}
		if c.Flags.IsOnePot {
			stats.OnePot++
		}
		if c.Flags.KidFriendly {
			stats.KidFriendly++
		}
	}
	if timed > 0 {
		stats.AverageMinutes = math.Round(float64(total)/float64(timed)*10) / 10
	}
	return stats
}

func summaryFor(stats discovery.ResponseStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s", stats.Count, plural(stats.Count, "recipe", "recipes"))
	if stats.AverageMinutes > 0 {
		fmt.Fprintf(&b, " averaging %.0f minutes", stats.AverageMinutes)
	}

	var traits []string
	if stats.Easy > 0 {
		traits = append(traits, fmt.Sprintf("%d easy", stats.Easy))
	}
	if stats.OnePot > 0 {
		traits = append(traits, fmt.Sprintf("%d one-pot", stats.OnePot))
	}
	if stats.KidFriendly > 0 {
		traits = append(traits, fmt.Sprintf("%d kid-friendly", stats.KidFriendly))
	}
	if len(traits) > 0 {
		fmt.Fprintf(&b, " (%s)", joinWithAnd(traits))
	}
	return b.String()
}

func variationNotice(variation discovery.VariationDecision) string {
	switch variation.Tier {
	case discovery.TierAlternativeIngredient:
		return fmt.Sprintf("Trying alternatives to %s this time", variation.Ingredient)
	case discovery.TierCuisineExploration:
		return fmt.Sprintf("Showing %s-style dishes this time", titleCase(variation.Modifier))
	case discovery.TierSeasonal:
		return "Adding seasonal ideas"
	case discovery.TierDiscovery:
		return "Showing something different"
	}
	return ""
}

func exhaustedMessage(variation discovery.VariationDecision) string {
	topic := variation.NormalizedQuery
	if variation.Ingredient != "" {
		topic = variation.Ingredient
	}
	return fmt.Sprintf("You've seen all our %s recipes for now. Reset your session to start over, or try one of the suggestions below.", topic)
}

// poolExhaustedMessage answers a first search whose every match was already shown
func poolExhaustedMessage(variation discovery.VariationDecision) string {
	return fmt.Sprintf("You've already seen every %s recipe we have. Search again for variations, or reset your session to start over.", variation.NormalizedQuery)
}

// suggestionsFor proposes two or three other directions to search
func suggestionsFor(intent discovery.IntentResult, variation discovery.VariationDecision) []string {
	var out []string
	if alts := ingredientAlternatives[variation.Ingredient]; len(alts) > 0 {
		out = append(out, alts[0]+" recipes")
	}
	for _, cuisine := range cuisineRotation {
		if cuisine != intent.Context.Cuisine && cuisine != variation.Modifier {
			out = append(out, cuisine+" dinner")
			break
		}
	}
	for _, category := range discoveryCategories {
		if category != variation.Modifier {
			out = append(out, "easy "+category)
			break
		}
	}
	return out
}

func leadIn(intent discovery.Intent, count int) string {
	here := fmt.Sprintf("Here are %d recipes", count)
	if count == 1 {
		here = "Here is 1 recipe"
	}
	switch intent {
	case discovery.IntentMealPlanning:
		return here + " to build your plan around"
	case discovery.IntentSubstitution:
		return here + " that work with what you have"
	case discovery.IntentGuidance:
		return here + " to practice with"
	case discovery.IntentCompleteMeal:
		return here + " to round out the meal"
	case discovery.IntentOccasionBased:
		return here + " for the occasion"
	case discovery.IntentDietary:
		return here + " that fit your diet"
	default:
		return here + " you haven't seen yet"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
