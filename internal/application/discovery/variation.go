package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"go.uber.org/zap"
)

// VariationEngine decides how a repeated query should be varied for a session.
// It only reads session state; the service records the outcome.
type VariationEngine struct {
	sessions outbound.SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewVariationEngine creates a new variation engine
func NewVariationEngine(sessions outbound.SessionStore, logger *zap.Logger) *VariationEngine {
	return &VariationEngine{
		sessions: sessions,
		logger:   logger.Named("variation"),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for seasonal modifiers
func (e *VariationEngine) WithClock(now func() time.Time) *VariationEngine {
	e.now = now
	return e
}

// Decide picks the variation for a query. A repeat escalates to the tier after the
// highest one already used; past the last tier the decision is exhausted.
func (e *VariationEngine) Decide(ctx context.Context, sessionID, rawQuery string, intent discovery.IntentResult) discovery.VariationDecision {
	normalized := discovery.NormalizeQuery(rawQuery)

	session, err := e.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		e.logger.Warn("Session read failed, treating as first search",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return e.firstSearch(normalized, intent, nil)
	}

	entries := session.HistoryFor(normalized)
	if len(entries) == 0 {
		return e.firstSearch(normalized, intent, session.ShownIDs)
	}
	if discovery.IsExhausted(entries) {
		return e.exhausted(normalized, intent, session.ShownIDs)
	}

	return e.fromTier(session, normalized, intent, discovery.MaxTierOf(entries)+1)
}

// Escalate moves a decision that produced nothing new to the next applicable tier
func (e *VariationEngine) Escalate(ctx context.Context, sessionID string, prev discovery.VariationDecision, intent discovery.IntentResult) discovery.VariationDecision {
	if prev.Exhausted {
		return prev
	}

	session, err := e.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		e.logger.Warn("Session read failed during escalation",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		session = discovery.NewSession(sessionID, e.now())
		session.ShownIDs = prev.ExcludeIDs
	}

	return e.fromTier(session, prev.NormalizedQuery, intent, prev.Tier+1)
}

func (e *VariationEngine) fromTier(session *discovery.Session, normalized string, intent discovery.IntentResult, tier int) discovery.VariationDecision {
	ingredient := intent.Context.Ingredient
	base := baseTerms(normalized, intent)

	for ; tier <= discovery.MaxTier; tier++ {
		decision, ok := e.applyTier(tier, session, normalized, ingredient, base, intent)
		if !ok {
			e.logger.Debug("Skipping inapplicable tier",
				zap.String("session_id", session.ID),
				zap.String("tier", discovery.TierName(tier)),
			)
			continue
		}
		decision.NormalizedQuery = normalized
		decision.IsRepeat = true
		decision.Tier = tier
		decision.Ingredient = ingredient
		decision.ExcludeIDs = copyIDs(session.ShownIDs)
		return decision
	}

	return e.exhausted(normalized, intent, session.ShownIDs)
}

func (e *VariationEngine) applyTier(tier int, session *discovery.Session, normalized, ingredient string, base []string, intent discovery.IntentResult) (discovery.VariationDecision, bool) {
	switch tier {
	case discovery.TierAlternativeIngredient:
		alternatives := ingredientAlternatives[ingredient]
		if ingredient == "" || len(alternatives) == 0 {
			return discovery.VariationDecision{}, false
		}
		terms := append([]string{}, alternatives...)
		terms = append(terms, without(base, ingredient)...)
		return discovery.VariationDecision{
			Terms:    terms,
			Modifier: strings.Join(alternatives, ", "),
			Message:  fmt.Sprintf("Trying alternatives to %s this time: %s", ingredient, joinWithAnd(alternatives)),
		}, true

	case discovery.TierCuisineExploration:
		cuisine := nextCuisine(session, normalized, ingredient, intent.Context.Cuisine)
		if cuisine == "" {
			return discovery.VariationDecision{}, false
		}
		required := []string{cuisine}
		if ingredient != "" {
			required = []string{ingredient, cuisine}
		}
		return discovery.VariationDecision{
			Terms:    base,
			Required: required,
			Modifier: cuisine,
			Message:  fmt.Sprintf("Showing %s-style dishes this time", titleCase(cuisine)),
		}, true

	case discovery.TierSeasonal:
		season := seasonFor(e.now())
		terms := append([]string{}, season.terms...)
		if intent.Context.Occasion != "" {
			terms = append(terms, intent.Context.Occasion)
		}
		var required []string
		if ingredient != "" {
			required = []string{ingredient}
		} else {
			terms = append(terms, base...)
		}
		return discovery.VariationDecision{
			Terms:    terms,
			Required: required,
			Modifier: season.name,
			Message:  fmt.Sprintf("Adding %s ideas to mix things up", season.name),
		}, true

	case discovery.TierDiscovery:
		category := nextCategory(session, ingredient)
		return discovery.VariationDecision{
			Terms:    []string{category},
			Modifier: category,
			Message:  fmt.Sprintf("Showing something different: %s", category),
		}, true
	}
	return discovery.VariationDecision{}, false
}

func (e *VariationEngine) firstSearch(normalized string, intent discovery.IntentResult, shown []discovery.RecipeID) discovery.VariationDecision {
	return discovery.VariationDecision{
		NormalizedQuery: normalized,
		Tier:            discovery.TierNone,
		Terms:           baseTerms(normalized, intent),
		Ingredient:      intent.Context.Ingredient,
		ExcludeIDs:      copyIDs(shown),
	}
}

func (e *VariationEngine) exhausted(normalized string, intent discovery.IntentResult, shown []discovery.RecipeID) discovery.VariationDecision {
	topic := normalized
	if intent.Context.Ingredient != "" {
		topic = intent.Context.Ingredient
	}
	return discovery.VariationDecision{
		NormalizedQuery: normalized,
		IsRepeat:        true,
		Tier:            discovery.TierDiscovery,
		Ingredient:      intent.Context.Ingredient,
		ExcludeIDs:      copyIDs(shown),
		Exhausted:       true,
		Message:         fmt.Sprintf("You've seen everything we have for %q", topic),
	}
}

// nextCuisine walks the rotation, skipping cuisines already explored for the
// same ingredient (or the same query when there is no ingredient)
func nextCuisine(session *discovery.Session, normalized, ingredient, ownCuisine string) string {
	used := map[string]bool{ownCuisine: true}
	for query, entries := range session.History {
		for _, entry := range entries {
			if entry.Tier != discovery.TierCuisineExploration {
				continue
			}
			if (ingredient != "" && entry.Ingredient == ingredient) || (ingredient == "" && query == normalized) {
				used[entry.Modifier] = true
			}
		}
	}
	for _, cuisine := range cuisineRotation {
		if !used[cuisine] {
			return cuisine
		}
	}
	return ""
}

// nextCategory picks a discovery category unrelated to the ingredient and not
// yet used for discovery in this session
func nextCategory(session *discovery.Session, ingredient string) string {
	used := make(map[string]bool)
	for _, entry := range session.AllHistory() {
		if entry.Tier == discovery.TierDiscovery && entry.Modifier != "" {
			used[entry.Modifier] = true
		}
	}

	var candidates []string
	for _, category := range discoveryCategories {
		if ingredient != "" && discovery.ContainsTerm(category, ingredient) {
			continue
		}
		candidates = append(candidates, category)
	}
	for _, category := range candidates {
		if !used[category] {
			return category
		}
	}
	return candidates[len(used)%len(candidates)]
}

func baseTerms(normalized string, intent discovery.IntentResult) []string {
	terms := discovery.Keywords(normalized)
	if len(terms) == 0 {
		terms = append(terms, intent.Keywords...)
	}
	if len(terms) == 0 && intent.Context.MealType != "" {
		terms = []string{intent.Context.MealType}
	}
	if len(terms) == 0 {
		terms = []string{"popular"}
	}
	return terms
}

func without(terms []string, drop string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != drop && !discovery.ContainsTerm(drop, t) {
			out = append(out, t)
		}
	}
	return out
}

func copyIDs(ids []discovery.RecipeID) []discovery.RecipeID {
	return append([]discovery.RecipeID{}, ids...)
}

func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
