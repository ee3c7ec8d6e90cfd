package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix   = "discovery:session:"
	maxHistoryPerQuery = 20
	maxWatchRetries    = 5
	defaultGaugePeriod = 10 * time.Minute

	fieldCreatedAt    = "created_at"
	fieldLastActivity = "last_activity"
)

// SessionStoreConfig configures the Redis session store
type SessionStoreConfig struct {
	TTL         time.Duration
	MaxShownIDs int
	KeyPrefix   string
}

// SessionStore keeps sessions in Redis. Every key carries the session TTL,
// refreshed on each access, so Redis expiry replaces the sweeper.
//
// Layout per session under {prefix}{id}:
//
//	:meta         hash of created_at / last_activity
//	:shown        sorted set of recipe IDs scored by insertion order
//	:seq          counter that produces the :shown scores
//	:history      hash of normalized query -> JSON entries
//	:cuisines     hash of cuisine counters
//	:ingredients  hash of ingredient counters
type SessionStore struct {
	client  goredis.UniversalClient
	config  SessionStoreConfig
	now     func() time.Time
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
}

var _ outbound.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new Redis session store
func NewSessionStore(client goredis.UniversalClient, config SessionStoreConfig, logger *zap.Logger) *SessionStore {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.MaxShownIDs <= 0 {
		config.MaxShownIDs = 500
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	return &SessionStore{
		client:  client,
		config:  config,
		now:     time.Now,
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("redis-session-store"),
	}
}

// WithMetrics reports the live session count
func (s *SessionStore) WithMetrics(metrics outbound.MetricsRecorder) *SessionStore {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// StartGaugeRefresher publishes Count to the active sessions gauge every
// interval until ctx is done. Count scans the keyspace, so it never runs
// on the request path.
func (s *SessionStore) StartGaugeRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultGaugePeriod
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.metrics.SetActiveSessions(s.Count())
			}
		}
	}()
}

type sessionKeys struct {
	meta, shown, seq, history, cuisines, ingredients string
}

func (s *SessionStore) keys(sessionID string) sessionKeys {
	base := s.config.KeyPrefix + sessionID
	return sessionKeys{
		meta:        base + ":meta",
		shown:       base + ":shown",
		seq:         base + ":seq",
		history:     base + ":history",
		cuisines:    base + ":cuisines",
		ingredients: base + ":ingredients",
	}
}

func (k sessionKeys) all() []string {
	return []string{k.meta, k.shown, k.seq, k.history, k.cuisines, k.ingredients}
}

// touch creates the meta hash if needed and refreshes every key's TTL
func (s *SessionStore) touch(ctx context.Context, pipe goredis.Pipeliner, k sessionKeys) {
	now := strconv.FormatInt(s.now().UnixNano(), 10)
	pipe.HSetNX(ctx, k.meta, fieldCreatedAt, now)
	pipe.HSet(ctx, k.meta, fieldLastActivity, now)
	for _, key := range k.all() {
		pipe.Expire(ctx, key, s.config.TTL)
	}
}

// GetOrCreate returns a snapshot of the session
func (s *SessionStore) GetOrCreate(ctx context.Context, sessionID string) (*discovery.Session, error) {
	k := s.keys(sessionID)

	var (
		meta        *goredis.MapStringStringCmd
		shown       *goredis.StringSliceCmd
		history     *goredis.MapStringStringCmd
		cuisines    *goredis.MapStringStringCmd
		ingredients *goredis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		s.touch(ctx, pipe, k)
		meta = pipe.HGetAll(ctx, k.meta)
		shown = pipe.ZRange(ctx, k.shown, 0, -1)
		history = pipe.HGetAll(ctx, k.history)
		cuisines = pipe.HGetAll(ctx, k.cuisines)
		ingredients = pipe.HGetAll(ctx, k.ingredients)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	session := discovery.NewSession(sessionID, parseNanos(meta.Val()[fieldCreatedAt]))
	session.LastActivity = parseNanos(meta.Val()[fieldLastActivity])

	if session.ShownIDs, err = parseIDs(shown.Val()); err != nil {
		return nil, err
	}
	for query, raw := range history.Val() {
		entries, err := decodeEntries(raw)
		if err != nil {
			return nil, err
		}
		session.History[query] = entries
	}
	session.CuisinePreference = parseCounters(cuisines.Val())
	session.IngredientInterest = parseCounters(ingredients.Val())
	return session, nil
}

// RecordShown adds IDs to the shown set and trims it to the newest MaxShownIDs
func (s *SessionStore) RecordShown(ctx context.Context, sessionID string, ids []discovery.RecipeID) error {
	if len(ids) == 0 {
		return nil
	}
	k := s.keys(sessionID)

	// scores come from a per-session sequence so insertion order survives ties
	last, err := s.client.IncrBy(ctx, k.seq, int64(len(ids))).Result()
	if err != nil {
		return fmt.Errorf("record shown for %s: %w", sessionID, err)
	}
	first := last - int64(len(ids)) + 1

	members := make([]goredis.Z, len(ids))
	for i, id := range ids {
		members[i] = goredis.Z{Score: float64(first + int64(i)), Member: strconv.FormatInt(int64(id), 10)}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAddNX(ctx, k.shown, members...)
		pipe.ZRemRangeByRank(ctx, k.shown, 0, int64(-s.config.MaxShownIDs-1))
		s.touch(ctx, pipe, k)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record shown for %s: %w", sessionID, err)
	}
	return nil
}

// GetShownIDs returns the shown set from oldest to newest
func (s *SessionStore) GetShownIDs(ctx context.Context, sessionID string) ([]discovery.RecipeID, error) {
	k := s.keys(sessionID)

	var shown *goredis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		shown = pipe.ZRange(ctx, k.shown, 0, -1)
		s.touch(ctx, pipe, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read shown for %s: %w", sessionID, err)
	}
	return parseIDs(shown.Val())
}

// Reset clears the session's shown set, history and preferences
func (s *SessionStore) Reset(ctx context.Context, sessionID string) error {
	k := s.keys(sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, k.shown, k.history, k.cuisines, k.ingredients)
		s.touch(ctx, pipe, k)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", sessionID, err)
	}
	return nil
}

// RecordSearch appends a history entry under an optimistic WATCH so that
// concurrent requests cannot lower the recorded tier
func (s *SessionStore) RecordSearch(ctx context.Context, sessionID string, entry discovery.SearchHistoryEntry) error {
	k := s.keys(sessionID)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.HGet(ctx, k.history, entry.Query).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		entries, err := decodeEntries(raw)
		if err != nil {
			return err
		}

		entries = append(entries, discovery.ClampEntry(entries, entry))
		if len(entries) > maxHistoryPerQuery {
			entries = entries[len(entries)-maxHistoryPerQuery:]
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, k.history, entry.Query, encoded)
			s.touch(ctx, pipe, k)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, k.history)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("record search for %s: %w", sessionID, err)
		}
		return nil
	}
	return fmt.Errorf("record search for %s: too much contention", sessionID)
}

// GetSearchHistory returns the entries for a normalized query
func (s *SessionStore) GetSearchHistory(ctx context.Context, sessionID, normalizedQuery string) ([]discovery.SearchHistoryEntry, error) {
	k := s.keys(sessionID)

	var raw *goredis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		raw = pipe.HGet(ctx, k.history, normalizedQuery)
		s.touch(ctx, pipe, k)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("read history for %s: %w", sessionID, err)
	}
	return decodeEntries(raw.Val())
}

// RecordPreferences bumps cuisine and ingredient counters
func (s *SessionStore) RecordPreferences(ctx context.Context, sessionID string, cuisines []string, ingredient string) error {
	k := s.keys(sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, c := range cuisines {
			pipe.HIncrBy(ctx, k.cuisines, c, 1)
		}
		if ingredient != "" {
			pipe.HIncrBy(ctx, k.ingredients, ingredient, 1)
		}
		s.touch(ctx, pipe, k)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record preferences for %s: %w", sessionID, err)
	}
	return nil
}

// Sweep is a no-op; Redis expires idle sessions through key TTLs
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Count scans for live session meta keys
func (s *SessionStore) Count() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count := 0
	iter := s.client.Scan(ctx, 0, s.config.KeyPrefix+"*:meta", 1000).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("Session count scan failed", zap.Error(err))
	}
	return count
}

func parseIDs(members []string) ([]discovery.RecipeID, error) {
	ids := make([]discovery.RecipeID, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt shown id %q: %w", m, err)
		}
		ids = append(ids, discovery.RecipeID(n))
	}
	return ids, nil
}

func decodeEntries(raw string) ([]discovery.SearchHistoryEntry, error) {
	if raw == "" {
		return nil, nil
	}
	var entries []discovery.SearchHistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("corrupt history entry: %w", err)
	}
	return entries, nil
}

func parseCounters(raw map[string]string) map[string]int {
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		if n, err := strconv.Atoi(v); err == nil {
			out[k] = n
		}
	}
	return out
}

func parseNanos(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
