package discovery

import "time"

// Variation tiers
const (
	TierNone                  = 0
	TierAlternativeIngredient = 1
	TierCuisineExploration    = 2
	TierSeasonal              = 3
	TierDiscovery             = 4
)

// TierName returns a short label for a tier
func TierName(tier int) string {
	switch tier {
	case TierAlternativeIngredient:
		return "alternative_ingredient"
	case TierCuisineExploration:
		return "cuisine_exploration"
	case TierSeasonal:
		return "seasonal"
	case TierDiscovery:
		return "discovery"
	default:
		return "none"
	}
}

// VariationDecision says how a search should be varied for a session
type VariationDecision struct {
	NormalizedQuery string `json:"normalized_query"`
	IsRepeat        bool   `json:"is_repeat"`
	Tier            int    `json:"tier"`
	// Terms are matched any-of; Required must all match
	Terms      []string   `json:"terms"`
	Required   []string   `json:"required,omitempty"`
	ExcludeIDs []RecipeID `json:"-"`
	Ingredient string     `json:"ingredient,omitempty"`
	Modifier   string     `json:"modifier,omitempty"`
	Message    string     `json:"message,omitempty"`
	Exhausted  bool       `json:"exhausted"`
}

// Phase strategies
const (
	PhasePrimary    = "primary"
	PhaseFallback   = "fallback"
	PhaseBroad      = "broad"
	PhaseUltraBroad = "ultra_broad"
	PhaseNone       = "none"
)

// SearchPhase is one attempt in the fallback sequence
type SearchPhase struct {
	Name       string   `json:"name"`
	Strategy   string   `json:"strategy"`
	Terms      []string `json:"terms"`
	Required   []string `json:"required,omitempty"`
	MinResults int      `json:"min_results"`
}

// PhaseAttempt records what happened when a phase ran
type PhaseAttempt struct {
	Phase    string        `json:"phase"`
	Strategy string        `json:"strategy"`
	Terms    []string      `json:"terms"`
	Required []string      `json:"required,omitempty"`
	Count    int           `json:"count"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ExecutionResult is the outcome of running a phase plan
type ExecutionResult struct {
	Results   []RecipeCandidate `json:"results"`
	PhaseUsed string            `json:"phase_used"`
	Attempts  []PhaseAttempt    `json:"attempts"`
	// ExclusionExhausted is set when exclusion alone emptied a phase
	ExclusionExhausted bool `json:"exclusion_exhausted"`
	// Query is the store query of the phase that produced the results
	Query *RecipeQuery `json:"-"`
}

// RecipeQuery is a single request to the recipe store
type RecipeQuery struct {
	Terms      []string
	Required   []string
	ExcludeIDs []RecipeID
	Limit      int
	Filters    Filters
}

// RecipeBadge is a user-facing label derived from intelligence flags
type RecipeBadge string

const (
	BadgeEasy             RecipeBadge = "easy"
	BadgeOnePot           RecipeBadge = "one-pot"
	BadgeKidFriendly      RecipeBadge = "kid-friendly"
	BadgeLeftoverFriendly RecipeBadge = "leftover-friendly"
	BadgeQuick            RecipeBadge = "quick"
)

// ComposedRecipe is a candidate decorated for display
type ComposedRecipe struct {
	RecipeCandidate
	Badges       []string `json:"badges"`
	Explanations string   `json:"explanations"`
}

// ResponseStats are aggregate numbers over a result page
type ResponseStats struct {
	Count          int     `json:"count"`
	AverageMinutes float64 `json:"average_minutes"`
	Easy           int     `json:"easy"`
	OnePot         int     `json:"one_pot"`
	KidFriendly    int     `json:"kid_friendly"`
}

// UserResponse is what the composer produces for the caller
type UserResponse struct {
	Recipes         []ComposedRecipe `json:"recipes"`
	Summary         string           `json:"summary"`
	Message         string           `json:"message"`
	VariationNotice string           `json:"variation_notice,omitempty"`
	Suggestions     []string         `json:"suggestions,omitempty"`
	Stats           ResponseStats    `json:"stats"`
	Exhausted       bool             `json:"exhausted"`
	ResetOffered    bool             `json:"reset_offered"`
}
