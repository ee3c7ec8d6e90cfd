// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Session    SessionConfig    `mapstructure:"session"`
	Search     SearchConfig     `mapstructure:"search"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains recipe database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	Replicas           []string      `mapstructure:"replicas"`
	ReplicaPolicy      string        `mapstructure:"replica_policy"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	Database      int           `mapstructure:"database"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MinIdleConns  int           `mapstructure:"min_idle_conns"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	PoolSize      int           `mapstructure:"pool_size"`
	EnableCluster bool          `mapstructure:"enable_cluster"`
	ClusterNodes  []string      `mapstructure:"cluster_nodes"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// SessionConfig contains session store configuration
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxShownIDs   int           `mapstructure:"max_shown_ids"`
	Shards        int           `mapstructure:"shards"`
}

// SearchConfig contains search pipeline tunables
type SearchConfig struct {
	PageSize     int           `mapstructure:"page_size"`
	MaxPageSize  int           `mapstructure:"max_page_size"`
	MinResults   int           `mapstructure:"min_results"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	StoreRetries uint          `mapstructure:"store_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
	ReadinessPath   string  `mapstructure:"readiness_path"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable         bool `mapstructure:"enable"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
	MaxClients     int  `mapstructure:"max_clients"`
}

// SeedConfig controls catalogue seeding for the SQLite store
type SeedConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	FakeRecipes int  `mapstructure:"fake_recipes"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/alchemorsel")
	}

	// Enable environment variable override
	v.SetEnvPrefix("ALCHEMORSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "alchemorsel-discovery")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "discovery.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "alchemorsel")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "100ms")
	v.SetDefault("database.replica_policy", "random")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "alchemorsel:")

	// Session defaults
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.sweep_interval", "10m")
	v.SetDefault("session.max_shown_ids", 500)
	v.SetDefault("session.shards", 32)

	// Search defaults
	v.SetDefault("search.page_size", 10)
	v.SetDefault("search.max_page_size", 50)
	v.SetDefault("search.min_results", 3)
	v.SetDefault("search.store_timeout", "2s")
	v.SetDefault("search.store_retries", 2)
	v.SetDefault("search.retry_delay", "50ms")
	v.SetDefault("search.cache_enabled", true)
	v.SetDefault("search.cache_ttl", "2m")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.max_clients", 10000)

	// Seed defaults
	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.fake_recipes", 0)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if err := c.Session.Validate(); err != nil {
		return err
	}

	if c.Search.PageSize < 1 {
		return fmt.Errorf("search.page_size must be positive")
	}
	if c.Search.MaxPageSize < c.Search.PageSize {
		return fmt.Errorf("search.max_page_size must be at least search.page_size")
	}
	if c.Search.MinResults < 1 {
		return fmt.Errorf("search.min_results must be positive")
	}
	if c.Search.StoreTimeout <= 0 {
		return fmt.Errorf("search.store_timeout must be positive")
	}

	if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
		return fmt.Errorf("monitoring.sampling_rate must be between 0 and 1")
	}

	if c.RateLimit.Enable && (c.RateLimit.RequestsPerMin < 1 || c.RateLimit.BurstSize < 1) {
		return fmt.Errorf("rate_limit.requests_per_min and rate_limit.burst_size must be positive")
	}

	return nil
}

// Validate checks the session tunables
func (s SessionConfig) Validate() error {
	switch s.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", s.Backend)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if s.MaxShownIDs < 1 {
		return fmt.Errorf("session.max_shown_ids must be positive")
	}
	if s.Shards < 1 {
		return fmt.Errorf("session.shards must be positive")
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return c.Database.DSN(c.Database.Host)
}

// DSN builds a postgres connection string for a host sharing the primary's credentials
func (d DatabaseConfig) DSN(host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		d.Port,
		d.Username,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

// Watcher reloads the config file on change and hands validated session
// tunables to apply
type Watcher struct {
	v       *viper.Viper
	file    string
	watcher *fsnotify.Watcher
	apply   func(SessionConfig)
	logger  *zap.Logger
}

// NewWatcher watches the directory holding the config file in use. It
// returns a nil Watcher when no config file is in use.
func NewWatcher(configPath string, logger *zap.Logger, apply func(SessionConfig)) (*Watcher, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	file := v.ConfigFileUsed()
	if file == "" {
		logger.Debug("No config file in use, hot reload disabled")
		return nil, nil
	}
	file = filepath.Clean(file)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory
	if err := fw.Add(filepath.Dir(file)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}

	return &Watcher{
		v:       v,
		file:    file,
		watcher: fw,
		apply:   apply,
		logger:  logger,
	}, nil
}

// Run applies config changes until ctx is done, then closes the watcher
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	w.logger.Info("Watching config for session changes", zap.String("file", w.file))

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Config watcher stopped")
			return
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.file {
				continue
			}
			handleChange(w.v, e, w.logger, w.apply)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func handleChange(v *viper.Viper, e fsnotify.Event, logger *zap.Logger, apply func(SessionConfig)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Failed to re-read config", zap.String("file", e.Name), zap.Error(err))
		return
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Warn("Ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
		return
	}

	logger.Info("Config changed, applying session tunables",
		zap.Duration("ttl", cfg.Session.TTL),
		zap.Int("max_shown_ids", cfg.Session.MaxShownIDs),
	)
	apply(cfg.Session)
}
