// Package discovery provides the application layer for session-aware recipe discovery
// This implements the use cases defined in the inbound ports
package discovery

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// defaultConfidence is reported when no intent pattern matched
const defaultConfidence = 0.1

var (
	minutesPattern = regexp.MustCompile(`(\d{1,3})\s*(?:-\s*)?(?:min|mins|minute|minutes)\b`)
	hoursPattern   = regexp.MustCompile(`(\d{1,2})\s*(?:-\s*)?(?:hr|hrs|hour|hours)\b`)
)

// IntentClassifier maps a raw query to an intent and context.
// It holds no state and is safe for concurrent use.
type IntentClassifier struct {
	patterns []intentPattern
}

// NewIntentClassifier creates a classifier over the built-in pattern tables
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{patterns: intentPatterns}
}

// Classify scores every intent, picks the best and extracts context.
// It never fails; unknown queries fall back to recipe search.
func (c *IntentClassifier) Classify(query string) discovery.IntentResult {
	text := strings.ToLower(strings.TrimSpace(query))

	result := discovery.IntentResult{
		Intent:     discovery.IntentRecipeSearch,
		Confidence: defaultConfidence,
		Context:    extractContext(text),
		Keywords:   discovery.Keywords(discovery.NormalizeQuery(text)),
	}
	if text == "" {
		return result
	}

	bestScore := 0.0
	bestHits := 0
	for _, row := range c.patterns {
		hits := countHits(text, row.patterns)
		if hits == 0 {
			continue
		}
		score := row.weight * float64(hits) / float64(len(row.patterns))
		if better(score, row.intent, bestScore, result.Intent, bestHits) {
			bestScore = score
			bestHits = hits
			result.Intent = row.intent
		}
	}

	if bestHits > 0 {
		result.Confidence = confidenceFor(bestHits, c.weightOf(result.Intent))
	}
	return result
}

func (c *IntentClassifier) weightOf(intent discovery.Intent) float64 {
	for _, row := range c.patterns {
		if row.intent == intent {
			return row.weight
		}
	}
	return 0
}

func better(score float64, intent discovery.Intent, bestScore float64, best discovery.Intent, bestHits int) bool {
	if bestHits == 0 {
		return true
	}
	const epsilon = 1e-9
	if math.Abs(score-bestScore) < epsilon {
		return intent.Priority() > best.Priority()
	}
	return score > bestScore
}

func confidenceFor(hits int, weight float64) float64 {
	conf := (0.4 + 0.2*float64(hits)) * weight
	return math.Min(1, math.Max(defaultConfidence, conf))
}

func countHits(text string, patterns []string) int {
	hits := 0
	for _, p := range patterns {
		if discovery.ContainsTerm(text, p) {
			hits++
		}
	}
	return hits
}

func firstGroup(text string, groups []termGroup) string {
	for _, g := range groups {
		if countHits(text, g.phrases) > 0 {
			return g.value
		}
	}
	return ""
}

func extractContext(text string) discovery.IntentContext {
	var ctx discovery.IntentContext
	if text == "" {
		return ctx
	}

	ctx.MaxMinutes = extractMinutes(text)
	ctx.SkillLevel = extractSkill(text)
	for _, g := range dietaryGroups {
		if countHits(text, g.phrases) > 0 {
			ctx.DietaryNeeds = append(ctx.DietaryNeeds, g.value)
		}
	}
	ctx.MealType = firstGroup(text, mealTypeGroups)
	ctx.Occasion = firstGroup(text, occasionGroups)
	ctx.CookingMethod = firstGroup(text, cookingMethodGroups)
	ctx.Ingredient = firstGroup(text, coreIngredients)
	ctx.Cuisine = firstGroup(text, cuisineGroups)
	return ctx
}

func extractMinutes(text string) *int {
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return &n
		}
	}
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			minutes := n * 60
			return &minutes
		}
	}
	if countHits(text, hourPhrases) > 0 {
		minutes := 60
		return &minutes
	}
	if countHits(text, quickPhrases) > 0 {
		minutes := 30
		return &minutes
	}
	return nil
}

func extractSkill(text string) discovery.SkillLevel {
	switch {
	case countHits(text, advancedPhrases) > 0:
		return discovery.SkillAdvanced
	case countHits(text, intermediatePhrases) > 0:
		return discovery.SkillIntermediate
	case countHits(text, beginnerPhrases) > 0:
		return discovery.SkillBeginner
	default:
		return ""
	}
}
