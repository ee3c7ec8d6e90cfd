// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// RecipeStore is the ranked recipe corpus the discovery engine searches.
// Terms match any-of and rank by number of matches, Required must all match,
// and ExcludeIDs are never returned.
type RecipeStore interface {
	Search(ctx context.Context, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error)
	Count(ctx context.Context, query discovery.RecipeQuery) (int, error)
}

// SessionStore holds per-session browsing state.
// Operations on an unknown session create it; sessions are never reported missing.
type SessionStore interface {
	// GetOrCreate returns a snapshot of the session, creating it on first use
	GetOrCreate(ctx context.Context, sessionID string) (*discovery.Session, error)

	// Shown set operations
	RecordShown(ctx context.Context, sessionID string, ids []discovery.RecipeID) error
	GetShownIDs(ctx context.Context, sessionID string) ([]discovery.RecipeID, error)

	// Reset clears shown IDs, history and preferences but keeps the session
	Reset(ctx context.Context, sessionID string) error

	// History operations
	RecordSearch(ctx context.Context, sessionID string, entry discovery.SearchHistoryEntry) error
	GetSearchHistory(ctx context.Context, sessionID, normalizedQuery string) ([]discovery.SearchHistoryEntry, error)

	// RecordPreferences bumps the cuisine and ingredient counters
	RecordPreferences(ctx context.Context, sessionID string, cuisines []string, ingredient string) error

	// Sweep removes expired sessions and reports how many were removed
	Sweep(ctx context.Context) (int, error)
	Count() int
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MetricsRecorder receives discovery events for monitoring
type MetricsRecorder interface {
	RecordSearch(phase string, tier int, outcome string, duration time.Duration)
	RecordExhausted()
	RecordStoreCall(operation string, duration time.Duration, err error)
	RecordReset()
	SetActiveSessions(count int)
	RecordSweep(removed int)
}

// NopMetrics discards every event
type NopMetrics struct{}

func (NopMetrics) RecordSearch(string, int, string, time.Duration) {}
func (NopMetrics) RecordExhausted() {}
func (NopMetrics) RecordStoreCall(string, time.Duration, error) {}
func (NopMetrics) RecordReset() {}
func (NopMetrics) SetActiveSessions(int) {}
func (NopMetrics) RecordSweep(int) {}
