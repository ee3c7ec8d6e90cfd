package gorm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/discovery/internal/infrastructure/config"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/migrations"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

const memoryDSN = ":memory:"

// Connect opens the recipe database for the configured driver, registers
// read replicas and migrates the recipes table. Postgres schemas are versioned
// migrations; sqlite is auto-migrated from the model.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN(cfg.Host))
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = memoryDSN
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewLogger(log, cfg.LogLevel, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver != "postgres" && (cfg.Path == "" || cfg.Path == memoryDSN) {
		// every pooled connection to :memory: would see its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := registerReplicas(db, cfg, log); err != nil {
		log.Warn("Failed to register read replicas", zap.Error(err))
	}

	if cfg.Driver == "postgres" {
		err = migrations.Run(cfg.DSN(cfg.Host), log)
	} else {
		err = Migrate(db)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Recipe database connected",
		zap.String("driver", cfg.Driver),
		zap.Int("replicas", len(cfg.Replicas)),
	)
	return db, nil
}

// Migrate creates or updates the recipes table from RecipeModel
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&RecipeModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// registerReplicas routes recipe reads to postgres replicas
func registerReplicas(db *gorm.DB, cfg config.DatabaseConfig, log *zap.Logger) error {
	if len(cfg.Replicas) == 0 || cfg.Driver != "postgres" {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cfg.Replicas))
	for i, host := range cfg.Replicas {
		replicas[i] = postgres.Open(cfg.DSN(host))
	}

	err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   loadBalancePolicy(cfg.ReplicaPolicy),
	}, &RecipeModel{}))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	log.Info("Read replicas configured",
		zap.Int("replica_count", len(cfg.Replicas)),
		zap.String("load_balance_policy", cfg.ReplicaPolicy),
	)
	return nil
}

// loadBalancePolicy converts string to dbresolver policy
func loadBalancePolicy(policy string) dbresolver.Policy {
	switch policy {
	case "round_robin":
		return dbresolver.RoundRobinPolicy()
	default:
		return dbresolver.RandomPolicy{}
	}
}

// logWriter adapts zap to gorm's printf-style logger
type logWriter struct {
	logger *zap.Logger
}

func (w logWriter) Printf(format string, args ...interface{}) {
	w.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewLogger creates a GORM logger that writes through zap
func NewLogger(log *zap.Logger, level string, slowThreshold time.Duration) logger.Interface {
	logLevel := logger.Silent
	switch level {
	case "debug", "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	return logger.New(
		logWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
