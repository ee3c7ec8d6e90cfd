package migrations_test

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/infrastructure/config"
	gormstore "github.com/alchemorsel/discovery/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/discovery/internal/infrastructure/persistence/sqlite"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

type PostgresMigrationSuite struct {
	suite.Suite
	ctx       context.Context
	container testcontainers.Container
	dbConfig  config.DatabaseConfig
}

func (s *PostgresMigrationSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("Skipping postgres container tests in short mode")
	}

	s.ctx = context.Background()
	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "discovery_test",
				"POSTGRES_USER":     "test_user",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("5432/tcp"),
			),
			Tmpfs: map[string]string{"/var/lib/postgresql/data": "rw"},
		},
		Started: true,
	})
	if err != nil {
		s.T().Skipf("Docker unavailable: %v", err)
	}
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "5432")
	s.Require().NoError(err)

	s.dbConfig = config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port.Int(),
		Database: "discovery_test",
		Username: "test_user",
		Password: "test_password",
		SSLMode:  "disable",
		LogLevel: "error",
	}
}

func (s *PostgresMigrationSuite) TearDownSuite() {
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("Failed to terminate postgres container: %v", err)
		}
	}
}

func (s *PostgresMigrationSuite) TestUpDownUp() {
	logger := zaptest.NewLogger(s.T())
	m, err := migrations.New(s.dbConfig.DSN(s.dbConfig.Host), logger)
	s.Require().NoError(err)
	defer m.Close()

	s.Require().NoError(m.Up())
	version, dirty, err := m.Version()
	s.Require().NoError(err)
	s.Equal(uint(2), version)
	s.False(dirty)

	// a second run is a no-op
	s.Require().NoError(m.Up())

	s.Require().NoError(m.Down())
	version, _, err = m.Version()
	s.Require().NoError(err)
	s.Equal(uint(1), version)

	s.Require().NoError(m.Up())
}

func (s *PostgresMigrationSuite) TestConnectMigratesAndSearches() {
	logger := zaptest.NewLogger(s.T())
	db, err := gormstore.Connect(s.dbConfig, logger)
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	defer sqlDB.Close()

	s.Require().NoError(db.Exec("TRUNCATE recipes RESTART IDENTITY").Error)
	seeded, err := sqlite.SeedDatabase(s.ctx, db, 0)
	s.Require().NoError(err)
	s.Positive(seeded)

	store := gormstore.NewRecipeStore(db)
	results, err := store.Search(s.ctx, discovery.RecipeQuery{Terms: []string{"chicken"}, Limit: 5})
	s.Require().NoError(err)
	s.Require().NotEmpty(results)
	for _, r := range results {
		s.Equal("Matches chicken", r.Explanation)
	}

	// the application pool is still usable after the migrator closed its own
	s.NoError(sqlDB.PingContext(s.ctx))
}

func TestPostgresMigrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresMigrationSuite))
}
