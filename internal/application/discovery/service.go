package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/inbound"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Request lifecycle states
const (
	stateReceived         = "received"
	stateClassified       = "classified"
	stateVariationDecided = "variation_decided"
	stateSearching        = "searching"
	stateComposed         = "composed"
	stateReturned         = "returned"
)

// Search outcomes reported to metrics
const (
	outcomeOK         = "ok"
	outcomeEmpty      = "empty"
	outcomeExhausted  = "exhausted"
	outcomeStoreError = "store_error"
)

// ServiceConfig holds the tunables of the discovery service
type ServiceConfig struct {
	PageSize    int
	MaxPageSize int
	MinResults  int
	Executor    ExecutorConfig
}

// DiscoveryService implements the discovery use cases
type DiscoveryService struct {
	classifier *IntentClassifier
	variation  *VariationEngine
	planner    *PhasePlanner
	executor   *SearchExecutor
	composer   *ResponseComposer
	sessions   outbound.SessionStore
	metrics    outbound.MetricsRecorder
	logger     *zap.Logger
	config     ServiceConfig
	now        func() time.Time
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(
	recipes outbound.RecipeStore,
	sessions outbound.SessionStore,
	metrics outbound.MetricsRecorder,
	config ServiceConfig,
	logger *zap.Logger,
) *DiscoveryService {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if config.PageSize <= 0 {
		config.PageSize = 5
	}
	if config.MaxPageSize < config.PageSize {
		config.MaxPageSize = config.PageSize
	}

	return &DiscoveryService{
		classifier: NewIntentClassifier(),
		variation:  NewVariationEngine(sessions, logger),
		planner:    NewPhasePlanner(config.MinResults),
		executor:   NewSearchExecutor(recipes, metrics, config.Executor, logger),
		composer:   NewResponseComposer(),
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger.Named("discovery-service"),
		config:     config,
		now:        time.Now,
	}
}

// WithClock replaces the service and variation clocks
func (s *DiscoveryService) WithClock(now func() time.Time) *DiscoveryService {
	s.now = now
	s.variation.WithClock(now)
	return s
}

var _ inbound.DiscoveryService = (*DiscoveryService)(nil)

// Search runs the full discovery pipeline for one query.
// On a store failure it returns both the partial result and the error;
// session state is left untouched in that case.
func (s *DiscoveryService) Search(ctx context.Context, cmd inbound.SearchCommand) (*inbound.SearchResultDTO, error) {
	started := s.now()

	if cmd.SessionID == "" {
		cmd.SessionID = uuid.NewString()
	}
	if utf8.RuneCountInString(cmd.SessionID) > discovery.MaxSessionIDLength {
		return nil, apperrors.NewValidationError(discovery.ErrInvalidSessionID.Error())
	}

	if strings.EqualFold(cmd.Command, inbound.CommandReset) {
		return s.searchReset(ctx, cmd.SessionID)
	}

	query := strings.TrimSpace(cmd.Query)
	if query == "" {
		return nil, apperrors.NewValidationError(discovery.ErrEmptyQuery.Error())
	}
	if utf8.RuneCountInString(query) > discovery.MaxQueryLength {
		return nil, apperrors.NewValidationError(discovery.ErrQueryTooLong.Error())
	}

	pageSize := cmd.PageSize
	if pageSize == 0 {
		pageSize = s.config.PageSize
	}
	if pageSize < 0 || pageSize > s.config.MaxPageSize {
		return nil, apperrors.NewValidationError(discovery.ErrInvalidPageSize.Error()).
			WithMetadata("max_page_size", s.config.MaxPageSize)
	}

	ctx, span := tracer.Start(ctx, "discovery.search")
	defer span.End()
	span.SetAttributes(attribute.String("discovery.session_id", cmd.SessionID))

	log := s.logger.With(zap.String("session_id", cmd.SessionID))
	log.Debug("Request state", zap.String("state", stateReceived), zap.String("query", query))

	intent := s.classifier.Classify(query)
	log.Debug("Request state",
		zap.String("state", stateClassified),
		zap.String("intent", intent.Intent.String()),
		zap.Float64("confidence", intent.Confidence),
	)

	decision := s.variation.Decide(ctx, cmd.SessionID, query, intent)
	decision.ExcludeIDs = mergeIDs(decision.ExcludeIDs, cmd.ShownHint)
	log.Debug("Request state",
		zap.String("state", stateVariationDecided),
		zap.Int("tier", decision.Tier),
		zap.Bool("repeat", decision.IsRepeat),
		zap.Bool("exhausted", decision.Exhausted),
		zap.Int("excluded", len(decision.ExcludeIDs)),
	)

	filters := mergeFilters(cmd.Filters, intent.Context)
	exec := &discovery.ExecutionResult{Results: []discovery.RecipeCandidate{}, PhaseUsed: discovery.PhaseNone}
	var attempts []discovery.PhaseAttempt
	tried := make(map[string]bool)
	checked, poolExhausted := false, false

	for !decision.Exhausted {
		log.Debug("Request state", zap.String("state", stateSearching), zap.Int("tier", decision.Tier))

		var err error
		exec, err = s.executor.Execute(ctx, ExecuteRequest{
			ExcludeIDs:          decision.ExcludeIDs,
			Phases:              s.planner.Plan(intent, decision),
			PageSize:            pageSize,
			Filters:             filters,
			Tried:               tried,
			SkipUnfilteredCheck: checked,
		})
		attempts = append(attempts, exec.Attempts...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store unavailable")
			return s.storeFailure(ctx, cmd, intent, decision, exec, attempts, started, err)
		}

		if len(exec.Results) > 0 {
			break
		}
		if !checked {
			checked, poolExhausted = true, exec.ExclusionExhausted
		}
		// First occurrences stay at tier 0; variation starts with the next repeat
		if !decision.IsRepeat {
			break
		}

		next := s.variation.Escalate(ctx, cmd.SessionID, decision, intent)
		next.ExcludeIDs = mergeIDs(next.ExcludeIDs, cmd.ShownHint)
		log.Debug("Escalating variation",
			zap.Int("from_tier", decision.Tier),
			zap.Int("to_tier", next.Tier),
			zap.Bool("exhausted", next.Exhausted),
		)
		decision = next
	}

	if len(exec.Results) == 0 && checked {
		exec.ExclusionExhausted = poolExhausted
	}

	resp := s.composer.Compose(exec.Results, intent, decision)
	if len(exec.Results) == 0 && exec.ExclusionExhausted && !decision.Exhausted {
		resp.Message = poolExhaustedMessage(decision)
		resp.ResetOffered = true
	}
	log.Debug("Request state", zap.String("state", stateComposed), zap.Int("recipes", len(resp.Recipes)))

	s.recordOutcome(ctx, cmd.SessionID, decision, intent, exec.Results)

	dto := s.toDTO(cmd, intent, decision, exec, attempts, resp, started)
	dto.ShownCount = s.shownCount(ctx, cmd.SessionID, decision, exec.Results)
	dto.TotalAvailable, dto.HasMore = s.availability(ctx, exec)

	outcome := outcomeOK
	switch {
	case decision.Exhausted:
		outcome = outcomeExhausted
		s.metrics.RecordExhausted()
	case len(exec.Results) == 0:
		outcome = outcomeEmpty
	}
	s.metrics.RecordSearch(exec.PhaseUsed, decision.Tier, outcome, s.now().Sub(started))

	span.SetAttributes(
		attribute.Int("discovery.tier", decision.Tier),
		attribute.String("discovery.outcome", outcome),
	)
	log.Debug("Request state", zap.String("state", stateReturned), zap.String("outcome", outcome))
	return dto, nil
}

// Reset clears a session's shown set and history
func (s *DiscoveryService) Reset(ctx context.Context, sessionID string) (*inbound.ResetResultDTO, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id is required")
	}
	if utf8.RuneCountInString(sessionID) > discovery.MaxSessionIDLength {
		return nil, apperrors.NewValidationError(discovery.ErrInvalidSessionID.Error())
	}

	if err := s.sessions.Reset(ctx, sessionID); err != nil {
		return nil, apperrors.NewSessionStoreError("reset session", err)
	}
	s.metrics.RecordReset()

	s.logger.Info("Session reset", zap.String("session_id", sessionID))
	return &inbound.ResetResultDTO{
		SessionID:  sessionID,
		ShownCount: 0,
		Message:    "Session reset. Your next search starts fresh.",
	}, nil
}

// Session returns a snapshot of a session, creating it if needed
func (s *DiscoveryService) Session(ctx context.Context, sessionID string) (*inbound.SessionDTO, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id is required")
	}

	session, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewSessionStoreError("load session", err)
	}

	return &inbound.SessionDTO{
		SessionID:          session.ID,
		CreatedAt:          session.CreatedAt,
		LastActivity:       session.LastActivity,
		ShownCount:         session.ShownCount(),
		History:            session.History,
		CuisinePreference:  session.CuisinePreference,
		IngredientInterest: session.IngredientInterest,
	}, nil
}

func (s *DiscoveryService) searchReset(ctx context.Context, sessionID string) (*inbound.SearchResultDTO, error) {
	reset, err := s.Reset(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &inbound.SearchResultDTO{
		SessionID: reset.SessionID,
		Recipes:   []discovery.ComposedRecipe{},
		Message:   reset.Message,
		Metadata: inbound.SearchMetadata{
			PhaseUsed: discovery.PhaseNone,
			Reset:     true,
		},
	}, nil
}

// recordOutcome mutates the session once the final result set is known.
// Failures are logged; losing session state degrades to repeats, not errors.
func (s *DiscoveryService) recordOutcome(ctx context.Context, sessionID string, decision discovery.VariationDecision, intent discovery.IntentResult, results []discovery.RecipeCandidate) {
	log := s.logger.With(zap.String("session_id", sessionID))

	if len(results) > 0 {
		if err := s.sessions.RecordShown(ctx, sessionID, discovery.CandidateIDs(results)); err != nil {
			log.Error("Failed to record shown recipes", zap.Error(err))
		}
	}

	entry := discovery.SearchHistoryEntry{
		Query:       decision.NormalizedQuery,
		Timestamp:   s.now(),
		ResultCount: len(results),
		Tier:        decision.Tier,
		Ingredient:  decision.Ingredient,
		Modifier:    decision.Modifier,
		Exhausted:   decision.Exhausted,
	}
	if err := s.sessions.RecordSearch(ctx, sessionID, entry); err != nil {
		log.Error("Failed to record search history", zap.Error(err))
	}

	var cuisines []string
	for _, r := range results {
		if r.Cuisine != "" {
			cuisines = append(cuisines, strings.ToLower(r.Cuisine))
		}
	}
	if len(cuisines) > 0 || intent.Context.Ingredient != "" {
		if err := s.sessions.RecordPreferences(ctx, sessionID, cuisines, intent.Context.Ingredient); err != nil {
			log.Warn("Failed to record preferences", zap.Error(err))
		}
	}
}

func (s *DiscoveryService) shownCount(ctx context.Context, sessionID string, decision discovery.VariationDecision, results []discovery.RecipeCandidate) int {
	ids, err := s.sessions.GetShownIDs(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Failed to read shown count", zap.String("session_id", sessionID), zap.Error(err))
		return len(mergeIDs(decision.ExcludeIDs, discovery.CandidateIDs(results)))
	}
	return len(ids)
}

// availability counts unseen matches left for the query that produced the page
func (s *DiscoveryService) availability(ctx context.Context, exec *discovery.ExecutionResult) (int, bool) {
	shown := len(exec.Results)
	if exec.Query == nil {
		return shown, false
	}

	q := *exec.Query
	q.ExcludeIDs = mergeIDs(q.ExcludeIDs, discovery.CandidateIDs(exec.Results))
	remaining, err := s.executor.Count(ctx, q)
	if err != nil {
		s.logger.Warn("Failed to count remaining recipes", zap.Error(err))
		return shown, false
	}
	return shown + remaining, remaining > 0
}

func (s *DiscoveryService) storeFailure(
	ctx context.Context,
	cmd inbound.SearchCommand,
	intent discovery.IntentResult,
	decision discovery.VariationDecision,
	exec *discovery.ExecutionResult,
	attempts []discovery.PhaseAttempt,
	started time.Time,
	cause error,
) (*inbound.SearchResultDTO, error) {
	s.metrics.RecordSearch(exec.PhaseUsed, decision.Tier, outcomeStoreError, s.now().Sub(started))
	s.logger.Error("Recipe store unavailable",
		zap.String("session_id", cmd.SessionID),
		zap.Int("partial", len(exec.Results)),
		zap.Error(cause),
	)

	resp := s.composer.Compose(exec.Results, intent, decision)
	if len(exec.Results) == 0 {
		resp.Message = "Recipe search is temporarily unavailable. Please try again in a moment."
	} else {
		resp.Message = fmt.Sprintf("Search was interrupted; here are the %d recipes we found so far. Please try again for more.", len(exec.Results))
	}

	dto := s.toDTO(cmd, intent, decision, exec, attempts, resp, started)
	dto.TotalAvailable = len(exec.Results)

	var appErr *apperrors.AppError
	switch {
	case errors.As(cause, &appErr):
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		// the caller's deadline ran out, not the per-call store timeout
		appErr = apperrors.NewTimeoutError(cause)
	default:
		appErr = apperrors.NewStoreUnavailableError(cause)
	}
	return dto, appErr
}

func (s *DiscoveryService) toDTO(
	cmd inbound.SearchCommand,
	intent discovery.IntentResult,
	decision discovery.VariationDecision,
	exec *discovery.ExecutionResult,
	attempts []discovery.PhaseAttempt,
	resp discovery.UserResponse,
	started time.Time,
) *inbound.SearchResultDTO {
	meta := inbound.SearchMetadata{
		PhaseUsed:       exec.PhaseUsed,
		IsVariation:     decision.Tier > discovery.TierNone,
		VariationTier:   decision.Tier,
		Exhausted:       decision.Exhausted,
		Intent:          intent.Intent,
		Confidence:      intent.Confidence,
		NormalizedQuery: decision.NormalizedQuery,
		PoolExhausted:   exec.ExclusionExhausted,
		DurationMillis:  s.now().Sub(started).Milliseconds(),
	}
	if decision.Tier > discovery.TierNone {
		meta.VariationName = discovery.TierName(decision.Tier)
	}
	if cmd.Debug {
		meta.PhaseAttempts = attempts
	}

	return &inbound.SearchResultDTO{
		SessionID:        cmd.SessionID,
		Recipes:          resp.Recipes,
		Summary:          resp.Summary,
		Message:          resp.Message,
		VariationMessage: resp.VariationNotice,
		Suggestions:      resp.Suggestions,
		Stats:            resp.Stats,
		Context:          intent.Context,
		Metadata:         meta,
	}
}

func mergeIDs(a, b []discovery.RecipeID) []discovery.RecipeID {
	seen := make(map[discovery.RecipeID]bool, len(a)+len(b))
	out := make([]discovery.RecipeID, 0, len(a)+len(b))
	for _, list := range [][]discovery.RecipeID{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func mergeFilters(f discovery.Filters, ctx discovery.IntentContext) discovery.Filters {
	if f.MaxMinutes <= 0 && ctx.MaxMinutes != nil {
		f.MaxMinutes = *ctx.MaxMinutes
	}
	return f
}
