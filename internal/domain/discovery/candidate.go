package discovery

// IntelligenceFlags are the precomputed recipe traits used for badges
type IntelligenceFlags struct {
	IsEasy           bool `json:"is_easy"`
	IsOnePot         bool `json:"is_one_pot"`
	KidFriendly      bool `json:"kid_friendly"`
	LeftoverFriendly bool `json:"leftover_friendly"`
}

// RecipeCandidate is a recipe returned by the store for a search.
// The engine treats candidates as read-only.
type RecipeCandidate struct {
	ID            RecipeID          `json:"id"`
	Title         string            `json:"title"`
	Cuisine       string            `json:"cuisine,omitempty"`
	Category      string            `json:"category,omitempty"`
	MealRole      string            `json:"meal_role,omitempty"`
	TotalMinutes  int               `json:"time_min"`
	Flags         IntelligenceFlags `json:"flags"`
	Ingredients   []string          `json:"ingredients,omitempty"`
	PantryMatches int               `json:"pantry_matches,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	// Score is the store's relevance score; higher is better
	Score float64 `json:"score,omitempty"`
}

// Filters narrows a search by recipe traits
type Filters struct {
	MaxMinutes  int   `json:"max_time,omitempty"`
	IsEasy      *bool `json:"is_easy,omitempty"`
	KidFriendly *bool `json:"kid_friendly,omitempty"`
}

// IsZero reports whether no filter is set
func (f Filters) IsZero() bool {
	return f.MaxMinutes <= 0 && f.IsEasy == nil && f.KidFriendly == nil
}

// Matches reports whether a candidate satisfies the filters
func (f Filters) Matches(c RecipeCandidate) bool {
	if f.MaxMinutes > 0 && c.TotalMinutes > f.MaxMinutes {
		return false
	}
	if f.IsEasy != nil && *f.IsEasy && !c.Flags.IsEasy {
		return false
	}
	if f.KidFriendly != nil && *f.KidFriendly && !c.Flags.KidFriendly {
		return false
	}
	return true
}

// CandidateIDs extracts the IDs of a candidate list in order
func CandidateIDs(candidates []RecipeCandidate) []RecipeID {
	ids := make([]RecipeID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}
