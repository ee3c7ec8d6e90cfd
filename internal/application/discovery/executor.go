package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/alchemorsel/discovery/internal/application/discovery")

// ExecutorConfig tunes store access
type ExecutorConfig struct {
	StoreTimeout time.Duration
	StoreRetries uint
	RetryDelay   time.Duration
}

// ExecuteRequest is one phase plan to run against the store
type ExecuteRequest struct {
	ExcludeIDs []discovery.RecipeID
	Phases     []discovery.SearchPhase
	PageSize   int
	Filters    discovery.Filters
	// Tried holds the term sets already searched under the same exclusions.
	// Matching phases are skipped and phases that run are added.
	Tried map[string]bool
	// SkipUnfilteredCheck suppresses the unfiltered check on an empty result
	SkipUnfilteredCheck bool
}

// SearchExecutor runs phase plans against the recipe store
type SearchExecutor struct {
	store   outbound.RecipeStore
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
	config  ExecutorConfig
}

// NewSearchExecutor creates a new search executor
func NewSearchExecutor(store outbound.RecipeStore, metrics outbound.MetricsRecorder, config ExecutorConfig, logger *zap.Logger) *SearchExecutor {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if config.StoreRetries == 0 {
		config.StoreRetries = 1
	}
	return &SearchExecutor{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("executor"),
		config:  config,
	}
}

// Execute tries phases in order, accumulating unseen candidates until a phase's
// minimum is met or the page is full. Results never shrink across phases.
// A store failure returns the partial accumulation with ErrStoreUnavailable.
func (x *SearchExecutor) Execute(ctx context.Context, req ExecuteRequest) (*discovery.ExecutionResult, error) {
	ctx, span := tracer.Start(ctx, "discovery.execute", trace.WithAttributes(
		attribute.Int("discovery.phases", len(req.Phases)),
		attribute.Int("discovery.excluded", len(req.ExcludeIDs)),
	))
	defer span.End()

	result := &discovery.ExecutionResult{
		Results:   []discovery.RecipeCandidate{},
		PhaseUsed: discovery.PhasePrimary,
	}
	if req.PageSize <= 0 || len(req.Phases) == 0 {
		result.PhaseUsed = discovery.PhaseNone
		return result, nil
	}

	excluded := make(map[discovery.RecipeID]bool, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		excluded[id] = true
	}

	satisfied := false
	lastContributor := ""
	for _, phase := range req.Phases {
		if len(result.Results) >= req.PageSize {
			break
		}
		key := phaseKey(phase)
		if req.Tried[key] {
			x.logger.Debug("Skipping phase already searched", zap.String("phase", phase.Name))
			continue
		}

		query := discovery.RecipeQuery{
			Terms:      phase.Terms,
			Required:   phase.Required,
			ExcludeIDs: append(copyIDs(req.ExcludeIDs), discovery.CandidateIDs(result.Results)...),
			Limit:      req.PageSize - len(result.Results),
			Filters:    req.Filters,
		}

		start := time.Now()
		found, err := x.search(ctx, phase.Name, query)
		attempt := discovery.PhaseAttempt{
			Phase:    phase.Name,
			Strategy: phase.Strategy,
			Terms:    phase.Terms,
			Required: phase.Required,
			Duration: time.Since(start),
		}

		if err != nil {
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			result.PhaseUsed = phaseOrNone(lastContributor)
			span.RecordError(err)
			span.SetStatus(codes.Error, "store unavailable")
			x.logger.Warn("Search phase failed",
				zap.String("phase", phase.Name),
				zap.Int("partial", len(result.Results)),
				zap.Error(err),
			)
			return result, fmt.Errorf("%w: phase %s: %w", discovery.ErrStoreUnavailable, phase.Name, err)
		}
		if req.Tried != nil {
			req.Tried[key] = true
		}

		added := 0
		for _, c := range found {
			if excluded[c.ID] || len(result.Results) >= req.PageSize {
				continue
			}
			excluded[c.ID] = true
			result.Results = append(result.Results, c)
			added++
		}

		attempt.Count = added
		attempt.Success = len(result.Results) >= phase.MinResults
		result.Attempts = append(result.Attempts, attempt)

		x.logger.Debug("Search phase finished",
			zap.String("phase", phase.Name),
			zap.String("strategy", phase.Strategy),
			zap.Strings("terms", phase.Terms),
			zap.Int("added", added),
			zap.Int("total", len(result.Results)),
		)

		if added > 0 {
			lastContributor = phase.Name
			q := query
			result.Query = &q
		}
		if attempt.Success {
			result.PhaseUsed = phase.Name
			satisfied = true
			break
		}
	}

	if !satisfied {
		result.PhaseUsed = phaseOrNone(lastContributor)
	}

	if len(result.Results) == 0 && len(req.ExcludeIDs) > 0 && !req.SkipUnfilteredCheck {
		result.ExclusionExhausted = x.checkUnfiltered(ctx, req)
	}

	span.SetAttributes(
		attribute.String("discovery.phase_used", result.PhaseUsed),
		attribute.Int("discovery.results", len(result.Results)),
		attribute.Bool("discovery.exclusion_exhausted", result.ExclusionExhausted),
	)
	return result, nil
}

// checkUnfiltered checks whether the first phase matches anything once the
// exclusion list is dropped
func (x *SearchExecutor) checkUnfiltered(ctx context.Context, req ExecuteRequest) bool {
	phase := req.Phases[0]
	found, err := x.search(ctx, "unfiltered", discovery.RecipeQuery{
		Terms:    phase.Terms,
		Required: phase.Required,
		Limit:    1,
		Filters:  req.Filters,
	})
	if err != nil {
		x.logger.Warn("Unfiltered check failed", zap.Error(err))
		return false
	}
	return len(found) > 0
}

// search runs one store call under the store timeout with retries
func (x *SearchExecutor) search(ctx context.Context, phase string, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error) {
	ctx, span := tracer.Start(ctx, "discovery.store.search", trace.WithAttributes(
		attribute.String("discovery.phase", phase),
		attribute.StringSlice("discovery.terms", query.Terms),
		attribute.Int("discovery.limit", query.Limit),
	))
	defer span.End()

	start := time.Now()
	found, err := retry.DoWithData(
		func() ([]discovery.RecipeCandidate, error) {
			callCtx := ctx
			if x.config.StoreTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, x.config.StoreTimeout)
				defer cancel()
			}
			return x.store.Search(callCtx, query)
		},
		retry.Context(ctx),
		retry.Attempts(x.config.StoreRetries),
		retry.Delay(x.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, context.Canceled)
		}),
	)
	x.metrics.RecordStoreCall("search", time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("discovery.found", len(found)))
	return found, nil
}

// phaseKey identifies a phase by the store query it issues
func phaseKey(phase discovery.SearchPhase) string {
	return strings.Join(phase.Terms, "\x1f") + "|" + strings.Join(phase.Required, "\x1f")
}

func phaseOrNone(phase string) string {
	if phase == "" {
		return discovery.PhaseNone
	}
	return phase
}

// Count reports how many recipes still match a query, under the store timeout
func (x *SearchExecutor) Count(ctx context.Context, query discovery.RecipeQuery) (int, error) {
	ctx, span := tracer.Start(ctx, "discovery.store.count")
	defer span.End()

	if x.config.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.config.StoreTimeout)
		defer cancel()
	}

	start := time.Now()
	n, err := x.store.Count(ctx, query)
	x.metrics.RecordStoreCall("count", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return n, nil
}
