package discovery

import (
	"sort"
	"time"
)

// RecipeID identifies a recipe in the backing store
type RecipeID int64

// MaxTier is the highest variation tier
const MaxTier = 4

// SearchHistoryEntry records one search made in a session
type SearchHistoryEntry struct {
	Query       string    `json:"query"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"result_count"`
	Tier        int       `json:"tier"`
	Ingredient  string    `json:"ingredient,omitempty"`
	// Modifier is the cuisine, season or discovery category a tier applied
	Modifier  string `json:"modifier,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// Session is a snapshot of one browsing session.
// Stores hand out copies; mutating a Session never changes stored state.
type Session struct {
	ID                 string                          `json:"id"`
	CreatedAt          time.Time                       `json:"created_at"`
	LastActivity       time.Time                       `json:"last_activity"`
	ShownIDs           []RecipeID                      `json:"shown_ids"`
	History            map[string][]SearchHistoryEntry `json:"history"`
	CuisinePreference  map[string]int                  `json:"cuisine_preference"`
	IngredientInterest map[string]int                  `json:"ingredient_interest"`
}

// NewSession creates an empty session
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:                 id,
		CreatedAt:          now,
		LastActivity:       now,
		ShownIDs:           []RecipeID{},
		History:            make(map[string][]SearchHistoryEntry),
		CuisinePreference:  make(map[string]int),
		IngredientInterest: make(map[string]int),
	}
}

// ShownCount returns how many recipes have been shown
func (s *Session) ShownCount() int {
	return len(s.ShownIDs)
}

// HistoryFor returns the entries recorded for a normalized query
func (s *Session) HistoryFor(normalizedQuery string) []SearchHistoryEntry {
	return s.History[normalizedQuery]
}

// AllHistory returns every history entry across queries ordered by time
func (s *Session) AllHistory() []SearchHistoryEntry {
	var all []SearchHistoryEntry
	for _, entries := range s.History {
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all
}

// IsExpired reports whether the session has been idle longer than ttl
func (s *Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActivity) > ttl
}

// Clone returns a deep copy
func (s *Session) Clone() *Session {
	c := &Session{
		ID:                 s.ID,
		CreatedAt:          s.CreatedAt,
		LastActivity:       s.LastActivity,
		ShownIDs:           append([]RecipeID(nil), s.ShownIDs...),
		History:            make(map[string][]SearchHistoryEntry, len(s.History)),
		CuisinePreference:  make(map[string]int, len(s.CuisinePreference)),
		IngredientInterest: make(map[string]int, len(s.IngredientInterest)),
	}
	if c.ShownIDs == nil {
		c.ShownIDs = []RecipeID{}
	}
	for q, entries := range s.History {
		c.History[q] = append([]SearchHistoryEntry(nil), entries...)
	}
	for k, v := range s.CuisinePreference {
		c.CuisinePreference[k] = v
	}
	for k, v := range s.IngredientInterest {
		c.IngredientInterest[k] = v
	}
	return c
}

// MaxTierOf returns the highest tier used for a set of entries, or -1 when empty
func MaxTierOf(entries []SearchHistoryEntry) int {
	top := -1
	for _, e := range entries {
		if e.Tier > top {
			top = e.Tier
		}
	}
	return top
}

// IsExhausted reports whether any entry marked the query as exhausted
func IsExhausted(entries []SearchHistoryEntry) bool {
	for _, e := range entries {
		if e.Exhausted {
			return true
		}
	}
	return false
}

// ClampEntry adjusts a new history entry against the existing entries for the
// same query: tiers never drop, timestamps stay ordered and exhaustion is sticky.
func ClampEntry(entries []SearchHistoryEntry, entry SearchHistoryEntry) SearchHistoryEntry {
	if len(entries) == 0 {
		return entry
	}
	if top := MaxTierOf(entries); entry.Tier < top {
		entry.Tier = top
	}
	if IsExhausted(entries) {
		entry.Exhausted = true
	}
	if last := entries[len(entries)-1]; entry.Timestamp.Before(last.Timestamp) {
		entry.Timestamp = last.Timestamp
	}
	return entry
}
