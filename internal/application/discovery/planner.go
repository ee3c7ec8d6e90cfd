package discovery

import (
	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// Phase strategy labels
const (
	strategyDirect       = "direct"
	strategyIntent       = "intent_fallback"
	strategyCategory     = "category"
	strategyCatchAll     = "catch_all"
	fallbackMinResults   = 2
	broadMinResults      = 1
	ultraBroadMinResults = 1
)

// PhasePlanner turns an intent and a variation decision into ordered search phases
type PhasePlanner struct {
	minResults int
}

// NewPhasePlanner creates a planner whose primary phase needs minResults hits
func NewPhasePlanner(minResults int) *PhasePlanner {
	if minResults < 1 {
		minResults = 1
	}
	return &PhasePlanner{minResults: minResults}
}

// Plan returns the phases for a decision. An exhausted decision has no phases.
func (p *PhasePlanner) Plan(intent discovery.IntentResult, decision discovery.VariationDecision) []discovery.SearchPhase {
	if decision.Exhausted {
		return nil
	}

	primaryStrategy := strategyDirect
	if decision.Tier > discovery.TierNone {
		primaryStrategy = discovery.TierName(decision.Tier)
	}

	phases := []discovery.SearchPhase{{
		Name:       discovery.PhasePrimary,
		Strategy:   primaryStrategy,
		Terms:      decision.Terms,
		Required:   decision.Required,
		MinResults: p.minResults,
	}}

	fallback, ok := intentFallbacks[intent.Intent]
	if !ok {
		fallback = intentFallbacks[discovery.IntentRecipeSearch]
	}
	phases = append(phases, discovery.SearchPhase{
		Name:       discovery.PhaseFallback,
		Strategy:   strategyIntent,
		Terms:      withContextTerms(fallback, intent.Context),
		MinResults: fallbackMinResults,
	})

	if broad := broadTerms(intent.Context, decision); len(broad) > 0 {
		phases = append(phases, discovery.SearchPhase{
			Name:       discovery.PhaseBroad,
			Strategy:   strategyCategory,
			Terms:      broad,
			MinResults: broadMinResults,
		})
	}

	phases = append(phases, discovery.SearchPhase{
		Name:       discovery.PhaseUltraBroad,
		Strategy:   strategyCatchAll,
		Terms:      ultraBroadTerms,
		MinResults: ultraBroadMinResults,
	})
	return phases
}

// withContextTerms adds the dietary needs and meal type to a fallback list
func withContextTerms(terms []string, ctx discovery.IntentContext) []string {
	out := append([]string{}, terms...)
	out = append(out, ctx.DietaryNeeds...)
	if ctx.MealType != "" {
		out = append(out, ctx.MealType)
	}
	return dedupe(out)
}

func broadTerms(ctx discovery.IntentContext, decision discovery.VariationDecision) []string {
	var terms []string
	// Discovery mode has dropped the ingredient on purpose
	if decision.Tier != discovery.TierDiscovery {
		if family, ok := ingredientFamilies[ctx.Ingredient]; ok {
			terms = append(terms, family)
		}
	}
	if ctx.MealType != "" {
		terms = append(terms, ctx.MealType)
	}
	if ctx.Cuisine != "" {
		terms = append(terms, ctx.Cuisine)
	}
	return dedupe(terms)
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
