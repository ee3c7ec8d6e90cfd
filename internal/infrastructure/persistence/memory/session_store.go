package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
)

// Session store defaults
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultMaxShownIDs   = 500
	DefaultShards        = 32
	maxHistoryPerQuery   = 20
	defaultSweepInterval = 10 * time.Minute
)

// SessionStoreConfig configures the in-memory session store
type SessionStoreConfig struct {
	TTL         time.Duration
	MaxShownIDs int
	Shards      int
}

type sessionEntry struct {
	mu           sync.Mutex
	deleted      bool
	id           string
	createdAt    time.Time
	lastActivity time.Time
	shown        *simplelru.LRU[discovery.RecipeID, struct{}]
	shownCap     int
	history      map[string][]discovery.SearchHistoryEntry
	cuisines     map[string]int
	ingredients  map[string]int
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// SessionStore is a sharded in-process session store.
// Shard locks guard the maps; each session has its own lock, so different
// sessions never contend and one session's requests serialize only on its state.
// The shown set is capped at MaxShownIDs; beyond that the oldest IDs are forgotten.
type SessionStore struct {
	shards   []*shard
	ttl      atomic.Int64
	maxShown atomic.Int64
	now      func() time.Time
	metrics  outbound.MetricsRecorder
	logger   *zap.Logger
}

var _ outbound.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new in-memory session store
func NewSessionStore(config SessionStoreConfig, logger *zap.Logger) *SessionStore {
	if config.TTL <= 0 {
		config.TTL = DefaultSessionTTL
	}
	if config.MaxShownIDs <= 0 {
		config.MaxShownIDs = DefaultMaxShownIDs
	}
	if config.Shards <= 0 {
		config.Shards = DefaultShards
	}

	s := &SessionStore{
		shards:  make([]*shard, config.Shards),
		now:     time.Now,
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("session-store"),
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*sessionEntry)}
	}
	s.ttl.Store(int64(config.TTL))
	s.maxShown.Store(int64(config.MaxShownIDs))
	return s
}

// WithClock replaces the store clock
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

// WithMetrics reports sweeps and session counts
func (s *SessionStore) WithMetrics(metrics outbound.MetricsRecorder) *SessionStore {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// UpdateLimits changes the TTL and shown-set cap at runtime.
// Existing shown sets shrink on their next write.
func (s *SessionStore) UpdateLimits(ttl time.Duration, maxShown int) {
	if ttl > 0 {
		s.ttl.Store(int64(ttl))
	}
	if maxShown > 0 {
		s.maxShown.Store(int64(maxShown))
	}
	s.logger.Info("Session limits updated",
		zap.Duration("ttl", time.Duration(s.ttl.Load())),
		zap.Int64("max_shown_ids", s.maxShown.Load()),
	)
}

// Limits returns the current TTL and shown-set cap
func (s *SessionStore) Limits() (time.Duration, int) {
	return time.Duration(s.ttl.Load()), int(s.maxShown.Load())
}

// GetOrCreate returns a snapshot of the session
func (s *SessionStore) GetOrCreate(ctx context.Context, sessionID string) (*discovery.Session, error) {
	var snapshot *discovery.Session
	s.withSession(sessionID, func(e *sessionEntry) {
		snapshot = e.snapshot()
	})
	return snapshot, nil
}

// RecordShown adds IDs to the shown set. Adding an ID twice is a no-op.
func (s *SessionStore) RecordShown(ctx context.Context, sessionID string, ids []discovery.RecipeID) error {
	s.withSession(sessionID, func(e *sessionEntry) {
		s.fitShown(e)
		for _, id := range ids {
			if !e.shown.Contains(id) {
				e.shown.Add(id, struct{}{})
			}
		}
	})
	return nil
}

// GetShownIDs returns the shown set from oldest to newest
func (s *SessionStore) GetShownIDs(ctx context.Context, sessionID string) ([]discovery.RecipeID, error) {
	var ids []discovery.RecipeID
	s.withSession(sessionID, func(e *sessionEntry) {
		ids = e.shown.Keys()
	})
	return ids, nil
}

// Reset clears the session's shown set, history and preferences
func (s *SessionStore) Reset(ctx context.Context, sessionID string) error {
	s.withSession(sessionID, func(e *sessionEntry) {
		e.shown.Purge()
		e.history = make(map[string][]discovery.SearchHistoryEntry)
		e.cuisines = make(map[string]int)
		e.ingredients = make(map[string]int)
	})
	return nil
}

// RecordSearch appends a history entry for entry.Query. The tier is raised to
// the highest tier already recorded for the query so the sequence never drops.
func (s *SessionStore) RecordSearch(ctx context.Context, sessionID string, entry discovery.SearchHistoryEntry) error {
	s.withSession(sessionID, func(e *sessionEntry) {
		entries := e.history[entry.Query]
		entry = discovery.ClampEntry(entries, entry)

		entries = append(entries, entry)
		if len(entries) > maxHistoryPerQuery {
			entries = append([]discovery.SearchHistoryEntry(nil), entries[len(entries)-maxHistoryPerQuery:]...)
		}
		e.history[entry.Query] = entries
	})
	return nil
}

// GetSearchHistory returns the entries for a normalized query ordered by time
func (s *SessionStore) GetSearchHistory(ctx context.Context, sessionID, normalizedQuery string) ([]discovery.SearchHistoryEntry, error) {
	var entries []discovery.SearchHistoryEntry
	s.withSession(sessionID, func(e *sessionEntry) {
		entries = append([]discovery.SearchHistoryEntry(nil), e.history[normalizedQuery]...)
	})
	return entries, nil
}

// RecordPreferences bumps cuisine and ingredient counters
func (s *SessionStore) RecordPreferences(ctx context.Context, sessionID string, cuisines []string, ingredient string) error {
	s.withSession(sessionID, func(e *sessionEntry) {
		for _, c := range cuisines {
			e.cuisines[c]++
		}
		if ingredient != "" {
			e.ingredients[ingredient]++
		}
	})
	return nil
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}

// Sweep removes sessions idle for longer than the TTL.
// It takes each session's lock before its shard lock, so an in-flight
// request either finishes first or retries on a fresh session.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	ttl := time.Duration(s.ttl.Load())
	now := s.now()
	removed := 0

	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		sh.mu.RLock()
		candidates := make([]*sessionEntry, 0, len(sh.sessions))
		for _, e := range sh.sessions {
			candidates = append(candidates, e)
		}
		sh.mu.RUnlock()

		for _, e := range candidates {
			e.mu.Lock()
			if !e.deleted && now.Sub(e.lastActivity) > ttl {
				sh.mu.Lock()
				if sh.sessions[e.id] == e {
					delete(sh.sessions, e.id)
				}
				sh.mu.Unlock()
				e.deleted = true
				removed++
			}
			e.mu.Unlock()
		}
	}

	return removed, nil
}

// StartSweeper runs Sweep every interval until ctx is cancelled
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Sweep(ctx)
				if err != nil {
					return
				}
				s.metrics.RecordSweep(removed)
				s.metrics.SetActiveSessions(s.Count())
				if removed > 0 {
					s.logger.Info("Expired sessions swept",
						zap.Int("removed", removed),
						zap.Int("remaining", s.Count()),
					)
				}
			}
		}
	}()
}

// withSession runs fn under the session's lock, creating the session if needed
func (s *SessionStore) withSession(sessionID string, fn func(e *sessionEntry)) {
	for {
		e := s.acquire(sessionID)
		e.mu.Lock()
		if e.deleted {
			// Lost a race with the sweeper
			e.mu.Unlock()
			continue
		}
		fn(e)
		e.lastActivity = s.now()
		e.mu.Unlock()
		return
	}
}

func (s *SessionStore) acquire(sessionID string) *sessionEntry {
	sh := s.shardFor(sessionID)

	sh.mu.RLock()
	e, ok := sh.sessions[sessionID]
	sh.mu.RUnlock()
	if ok {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok = sh.sessions[sessionID]; ok {
		return e
	}

	e = s.newEntry(sessionID)
	sh.sessions[sessionID] = e
	s.logger.Debug("Session created", zap.String("session_id", sessionID))
	return e
}

func (s *SessionStore) newEntry(sessionID string) *sessionEntry {
	capacity := int(s.maxShown.Load())
	shown, _ := simplelru.NewLRU[discovery.RecipeID, struct{}](capacity, nil)
	now := s.now()
	return &sessionEntry{
		id:           sessionID,
		createdAt:    now,
		lastActivity: now,
		shown:        shown,
		shownCap:     capacity,
		history:      make(map[string][]discovery.SearchHistoryEntry),
		cuisines:     make(map[string]int),
		ingredients:  make(map[string]int),
	}
}

// fitShown applies a changed shown-set cap to an existing session
func (s *SessionStore) fitShown(e *sessionEntry) {
	capacity := int(s.maxShown.Load())
	if capacity != e.shownCap {
		e.shown.Resize(capacity)
		e.shownCap = capacity
	}
}

func (s *SessionStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (e *sessionEntry) snapshot() *discovery.Session {
	session := discovery.NewSession(e.id, e.createdAt)
	session.LastActivity = e.lastActivity
	session.ShownIDs = e.shown.Keys()
	for q, entries := range e.history {
		session.History[q] = append([]discovery.SearchHistoryEntry(nil), entries...)
	}
	for k, v := range e.cuisines {
		session.CuisinePreference[k] = v
	}
	for k, v := range e.ingredients {
		session.IngredientInterest[k] = v
	}
	return session
}
