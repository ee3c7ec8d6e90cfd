// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// DiscoveryService defines the use cases for session-aware recipe discovery
// This is the primary port that HTTP handlers and the CLI use
type DiscoveryService interface {
	// Search classifies, varies, executes and composes a query for a session
	Search(ctx context.Context, cmd SearchCommand) (*SearchResultDTO, error)

	// Reset forgets everything a session has been shown
	Reset(ctx context.Context, sessionID string) (*ResetResultDTO, error)

	// Session returns a debugging snapshot of a session
	Session(ctx context.Context, sessionID string) (*SessionDTO, error)
}

// CommandReset asks the search endpoint to reset the session instead of searching
const CommandReset = "reset"

// SearchCommand contains data for a discovery search
type SearchCommand struct {
	Query     string
	SessionID string
	// ShownHint is the client-side cache of shown IDs; the server stays authoritative
	ShownHint []discovery.RecipeID
	PageSize  int
	Filters   discovery.Filters
	Command   string
	Debug     bool
}

// SearchMetadata describes how a result page was produced
type SearchMetadata struct {
	PhaseUsed       string                   `json:"phase_used"`
	IsVariation     bool                     `json:"is_variation"`
	VariationTier   int                      `json:"variation_tier"`
	VariationName   string                   `json:"variation_name,omitempty"`
	Exhausted       bool                     `json:"exhausted"`
	Intent          discovery.Intent         `json:"intent"`
	Confidence      float64                  `json:"confidence"`
	NormalizedQuery string                   `json:"normalized_query"`
	PhaseAttempts   []discovery.PhaseAttempt `json:"phase_attempts,omitempty"`
	PoolExhausted   bool                     `json:"pool_exhausted,omitempty"`
	Reset           bool                     `json:"reset,omitempty"`
	DurationMillis  int64                    `json:"duration_ms"`
}

// SearchResultDTO is the result of a discovery search
type SearchResultDTO struct {
	SessionID        string                     `json:"session_id"`
	Recipes          []discovery.ComposedRecipe `json:"recipes"`
	TotalAvailable   int                        `json:"total_available"`
	HasMore          bool                       `json:"has_more"`
	ShownCount       int                        `json:"shown_count"`
	Summary          string                     `json:"summary"`
	Message          string                     `json:"message"`
	VariationMessage string                     `json:"variation_message,omitempty"`
	Suggestions      []string                   `json:"suggestions,omitempty"`
	Stats            discovery.ResponseStats    `json:"stats"`
	Context          discovery.IntentContext    `json:"context"`
	Metadata         SearchMetadata             `json:"search_metadata"`
}

// ResetResultDTO confirms a session reset
type ResetResultDTO struct {
	SessionID  string `json:"session_id"`
	ShownCount int    `json:"shown_count"`
	Message    string `json:"message"`
}

// SessionDTO is a read-only view of a session
type SessionDTO struct {
	SessionID          string                                    `json:"session_id"`
	CreatedAt          time.Time                                 `json:"created_at"`
	LastActivity       time.Time                                 `json:"last_activity"`
	ShownCount         int                                       `json:"shown_count"`
	History            map[string][]discovery.SearchHistoryEntry `json:"history"`
	CuisinePreference  map[string]int                            `json:"cuisine_preference"`
	IngredientInterest map[string]int                            `json:"ingredient_interest"`
}
