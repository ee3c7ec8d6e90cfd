// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	appdiscovery "github.com/alchemorsel/discovery/internal/application/discovery"
	"github.com/alchemorsel/discovery/internal/infrastructure/cache"
	"github.com/alchemorsel/discovery/internal/infrastructure/config"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/discovery/internal/infrastructure/monitoring"
	gormstore "github.com/alchemorsel/discovery/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/memory"
	redisstore "github.com/alchemorsel/discovery/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/discovery/internal/ports/inbound"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"github.com/alchemorsel/discovery/pkg/healthcheck"
	"github.com/alchemorsel/discovery/pkg/logger"
	"github.com/hashicorp/go-multierror"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cacheCleanupInterval = time.Minute

// ConfigPath is the optional config file handed to viper
type ConfigPath string

// Module provides the full API server application
var Module = fx.Options(
	CoreModule,
	HTTPModule,
	LifecycleModule,
	HotReloadModule,
)

// CoreModule provides everything needed to run searches, without HTTP
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	ResourceModule,
	MonitoringModule,
	DatabaseModule,
	SessionModule,
	RecipeModule,
	ServiceModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Fields: map[string]string{
				"service":     cfg.App.Name,
				"environment": cfg.App.Environment,
			},
		})
	},
)

// ResourceModule provides the shared closer registry and background context
var ResourceModule = fx.Provide(
	newResources,
	newRedisConnector,
)

// MonitoringModule provides metrics and tracing; the tracer provider is
// installed globally, so it is always constructed
var MonitoringModule = fx.Options(
	fx.Provide(monitoring.NewMetricsCollector, newTracingProvider),
	fx.Provide(func(m *monitoring.MetricsCollector) outbound.MetricsRecorder { return m }),
	fx.Invoke(func(*monitoring.TracingProvider) {}),
)

func newTracingProvider(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		Insecure:       cfg.Monitoring.OTLPInsecure,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		Enabled:        cfg.Monitoring.EnableTracing,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return tp, nil
}

// DatabaseModule provides the recipe database
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, res *Resources) (*gorm.DB, error) {
		db, err := gormstore.Connect(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		res.AddCloser("database", sqlDB.Close)

		if cfg.Seed.Enabled {
			seeded, err := sqlite.SeedDatabase(context.Background(), db, cfg.Seed.FakeRecipes)
			if err != nil {
				return nil, err
			}
			if seeded > 0 {
				log.Info("Recipe catalogue seeded", zap.Int("recipes", seeded))
			}
		}
		return db, nil
	},
)

// SessionModule provides the session store selected by session.backend
var SessionModule = fx.Provide(newSessionStore)

// RecipeModule provides the recipe store, cached when search.cache_enabled
var RecipeModule = fx.Provide(newRecipeStore)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	fx.Annotate(
		func(
			recipes outbound.RecipeStore,
			sessions outbound.SessionStore,
			metrics outbound.MetricsRecorder,
			cfg *config.Config,
			log *zap.Logger,
		) *appdiscovery.DiscoveryService {
			return appdiscovery.NewDiscoveryService(recipes, sessions, metrics, appdiscovery.ServiceConfig{
				PageSize:    cfg.Search.PageSize,
				MaxPageSize: cfg.Search.MaxPageSize,
				MinResults:  cfg.Search.MinResults,
				Executor: appdiscovery.ExecutorConfig{
					StoreTimeout: cfg.Search.StoreTimeout,
					StoreRetries: cfg.Search.StoreRetries,
					RetryDelay:   cfg.Search.RetryDelay,
				},
			}, log)
		},
		fx.As(new(inbound.DiscoveryService)),
	),
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	handlers.NewDiscoveryHandlers,
	newRateLimiter,
	newHealthCheck,
	apiserver.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// HotReloadModule applies session tunables from config file edits while serving
var HotReloadModule = fx.Invoke(registerConfigWatch)

// Resources tracks what must be released on shutdown and owns the context
// background workers run under
type Resources struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func newResources(lc fx.Lifecycle) *Resources {
	ctx, cancel := context.WithCancel(context.Background())
	res := &Resources{ctx: ctx, cancel: cancel}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return res.Close() },
	})
	return res
}

// Context is cancelled when the application stops
func (r *Resources) Context() context.Context {
	return r.ctx
}

// AddCloser registers a resource to close on shutdown
func (r *Resources) AddCloser(name string, close func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, namedCloser{name: name, close: close})
}

// Close cancels background work and closes resources in reverse order,
// returning every failure
func (r *Resources) Close() error {
	r.cancel()

	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}
	return result.ErrorOrNil()
}

// RedisConnector opens the Redis client on first use so that deployments
// without Redis never dial it
type RedisConnector struct {
	cfg    *config.Config
	log    *zap.Logger
	res    *Resources
	once   sync.Once
	client goredis.UniversalClient
	err    error
}

func newRedisConnector(cfg *config.Config, log *zap.Logger, res *Resources) *RedisConnector {
	return &RedisConnector{cfg: cfg, log: log, res: res}
}

// Client returns the shared Redis client
func (c *RedisConnector) Client() (goredis.UniversalClient, error) {
	c.once.Do(func() {
		c.client, c.err = redisstore.NewClient(&c.cfg.Redis, c.log)
		if c.err == nil {
			c.res.AddCloser("redis", c.client.Close)
		}
	})
	return c.client, c.err
}

func usesRedis(cfg *config.Config) bool {
	return cfg.Session.Backend == "redis"
}

func newSessionStore(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	metrics outbound.MetricsRecorder,
	redis *RedisConnector,
	res *Resources,
) (outbound.SessionStore, error) {
	if usesRedis(cfg) {
		client, err := redis.Client()
		if err != nil {
			return nil, err
		}
		store := redisstore.NewSessionStore(client, redisstore.SessionStoreConfig{
			TTL:         cfg.Session.TTL,
			MaxShownIDs: cfg.Session.MaxShownIDs,
			KeyPrefix:   cfg.Redis.KeyPrefix + "session:",
		}, log).WithMetrics(metrics)

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				store.StartGaugeRefresher(res.Context(), cfg.Session.SweepInterval)
				return nil
			},
		})
		log.Info("Using Redis session store")
		return store, nil
	}

	store := memory.NewSessionStore(memory.SessionStoreConfig{
		TTL:         cfg.Session.TTL,
		MaxShownIDs: cfg.Session.MaxShownIDs,
		Shards:      cfg.Session.Shards,
	}, log).WithMetrics(metrics)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			store.StartSweeper(res.Context(), cfg.Session.SweepInterval)
			return nil
		},
	})
	log.Info("Using in-memory session store",
		zap.Duration("ttl", cfg.Session.TTL),
		zap.Int("max_shown_ids", cfg.Session.MaxShownIDs),
	)
	return store, nil
}

// limitUpdater is a session store whose limits change at runtime
type limitUpdater interface {
	UpdateLimits(ttl time.Duration, maxShownIDs int)
}

func registerConfigWatch(lc fx.Lifecycle, path ConfigPath, log *zap.Logger, sessions outbound.SessionStore, res *Resources) {
	store, ok := sessions.(limitUpdater)
	if !ok {
		// Redis keys carry their own TTL; nothing to retune in process
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w, err := config.NewWatcher(string(path), log, func(sc config.SessionConfig) {
				store.UpdateLimits(sc.TTL, sc.MaxShownIDs)
			})
			if err != nil || w == nil {
				return err
			}
			go w.Run(res.Context())
			return nil
		},
	})
}

func newRecipeStore(
	db *gorm.DB,
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	redis *RedisConnector,
	res *Resources,
) (outbound.RecipeStore, error) {
	base := gormstore.NewRecipeStore(db)
	if !cfg.Search.CacheEnabled {
		return base, nil
	}

	var repo outbound.CacheRepository
	if usesRedis(cfg) {
		client, err := redis.Client()
		if err != nil {
			return nil, err
		}
		repo = redisstore.NewCacheRepository(client, cfg.Redis.KeyPrefix+"cache:", log)
	} else {
		repo = memory.NewCacheRepository(res.Context(), cacheCleanupInterval)
	}

	cached := cache.NewRecipeStore(base, repo, cfg.Search.CacheTTL, log)
	metrics.RegisterCacheStats("recipes", cached.Stats)
	return cached, nil
}

func newRateLimiter(cfg *config.Config, log *zap.Logger) (*middleware.RateLimiter, error) {
	if !cfg.RateLimit.Enable {
		return nil, nil
	}
	return middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMin: cfg.RateLimit.RequestsPerMin,
		BurstSize:      cfg.RateLimit.BurstSize,
		MaxClients:     cfg.RateLimit.MaxClients,
	}, log)
}

func newHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	sessions outbound.SessionStore,
	redis *RedisConnector,
) (*healthcheck.HealthCheck, error) {
	hc := healthcheck.New(cfg.App.Version, log)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	hc.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

	if usesRedis(cfg) {
		client, err := redis.Client()
		if err != nil {
			return nil, err
		}
		hc.Register("redis", healthcheck.NewRedisChecker(client))
	}

	hc.RegisterOptional("sessions", healthcheck.NewCustomChecker("sessions",
		func(ctx context.Context) (healthcheck.Status, string, interface{}) {
			return healthcheck.StatusHealthy, "", map[string]interface{}{
				"backend": cfg.Session.Backend,
				"active":  sessions.Count(),
			}
		},
	))
	return hc, nil
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *apiserver.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting discovery service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			ln, err := net.Listen("tcp", server.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", server.Addr(), err)
			}

			go func() {
				if err := server.Serve(ln); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping discovery service")
			return server.Shutdown(ctx)
		},
	})
}
