// Package discovery contains the domain types of the recipe discovery engine:
// classified intents, browsing sessions, recipe candidates and the decisions
// the engine makes about them.
package discovery

// Intent represents what the user is trying to do with a query
type Intent string

const (
	IntentRecipeSearch  Intent = "recipe_search"
	IntentMealPlanning  Intent = "meal_planning"
	IntentSubstitution  Intent = "substitution"
	IntentCompleteMeal  Intent = "complete_meal"
	IntentOccasionBased Intent = "occasion_based"
	IntentDietary       Intent = "dietary"
	IntentGuidance      Intent = "guidance"
)

// AllIntents lists every intent from highest to lowest priority
var AllIntents = []Intent{
	IntentMealPlanning,
	IntentSubstitution,
	IntentGuidance,
	IntentCompleteMeal,
	IntentOccasionBased,
	IntentDietary,
	IntentRecipeSearch,
}

// Priority returns the static tie-break rank of the intent. Higher wins.
func (i Intent) Priority() int {
	switch i {
	case IntentMealPlanning:
		return 7
	case IntentSubstitution:
		return 6
	case IntentGuidance:
		return 5
	case IntentCompleteMeal:
		return 4
	case IntentOccasionBased:
		return 3
	case IntentDietary:
		return 2
	case IntentRecipeSearch:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the intent is one of the known intents
func (i Intent) IsValid() bool {
	return i.Priority() > 0
}

// String returns the wire name of the intent
func (i Intent) String() string {
	return string(i)
}

// SkillLevel describes the cooking skill a query asks for
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// IntentContext is the bag of optional context extracted from a query.
// Every field may be empty; several can be populated by one query.
type IntentContext struct {
	MaxMinutes    *int       `json:"max_minutes,omitempty"`
	SkillLevel    SkillLevel `json:"skill_level,omitempty"`
	DietaryNeeds  []string   `json:"dietary_needs,omitempty"`
	MealType      string     `json:"meal_type,omitempty"`
	Occasion      string     `json:"occasion,omitempty"`
	CookingMethod string     `json:"cooking_method,omitempty"`
	Ingredient    string     `json:"ingredient,omitempty"`
	Cuisine       string     `json:"cuisine,omitempty"`
}

// IsEmpty reports whether no context dimension was extracted
func (c IntentContext) IsEmpty() bool {
	return c.MaxMinutes == nil &&
		c.SkillLevel == "" &&
		len(c.DietaryNeeds) == 0 &&
		c.MealType == "" &&
		c.Occasion == "" &&
		c.CookingMethod == "" &&
		c.Ingredient == "" &&
		c.Cuisine == ""
}

// IntentResult is the outcome of classifying a single query
type IntentResult struct {
	Intent     Intent        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Context    IntentContext `json:"context"`
	// Keywords are the normalized query tokens left after stop-word removal
	Keywords []string `json:"keywords,omitempty"`
}
