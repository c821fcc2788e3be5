package suites

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/joefazee/settlement/app/database"
)

const (
	pgImage    = "postgres:17.5-alpine3.21"
	pgDatabase = "settlement"
	pgUser     = "settlement"
	pgPassword = "settlement-test"
)

// PostgresContainer is a throwaway postgres reachable through Config.
type PostgresContainer struct {
	testcontainers.Container
	Config database.Config
}

// NewPostgresContainer starts postgres and waits until it accepts queries.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	const port = "5432/tcp"
	dbURL := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, host, port.Port(), pgDatabase)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{port},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
			Env: map[string]string{
				"POSTGRES_DB":       pgDatabase,
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
			},
			WaitingFor: wait.ForSQL(port, "postgres", dbURL).
				WithStartupTimeout(30 * time.Second).
				WithQuery("SELECT 1"),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &PostgresContainer{
		Container: container,
		Config: database.Config{
			Host:            host,
			Port:            mapped.Port(),
			User:            pgUser,
			Password:        pgPassword,
			Database:        pgDatabase,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
	}, nil
}

// RepositoryTestSuite runs a suite against a fresh postgres. With
// AutoMigrate the schema comes from the same SQL migrations production uses.
type RepositoryTestSuite struct {
	suite.Suite
	Container   *PostgresContainer
	DB          *gorm.DB
	AutoMigrate bool
	// SkipDatabaseCleanup keeps rows between tests.
	SkipDatabaseCleanup bool
}

func (s *RepositoryTestSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("Skipping database integration tests in short mode")
	}

	ctx := context.Background()
	container, err := NewPostgresContainer(ctx)
	s.Require().NoError(err)
	s.Container = container
	s.T().Cleanup(func() { _ = container.Terminate(context.Background()) })

	cfg := container.Config
	if s.AutoMigrate {
		cfg.MigrationsPath = migrationsPath()
		s.Require().NotEmpty(cfg.MigrationsPath, "migrations directory not found")
		_, dirty, err := database.Migrate(&cfg, 0)
		s.Require().NoError(err)
		s.Require().False(dirty)
	}

	db, err := database.New(&cfg)
	s.Require().NoError(err)
	s.DB = db
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
}

// migrationsPath walks up to the module root.
func migrationsPath() string {
	wd, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return filepath.Join(wd, "migrations")
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return ""
		}
		wd = parent
	}
}

func (s *RepositoryTestSuite) BeforeTest(_, _ string) {
	s.truncate()
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.truncate()
}

// truncate empties every engine table and resets identity columns.
func (s *RepositoryTestSuite) truncate() {
	if s.SkipDatabaseCleanup || s.DB == nil {
		return
	}

	var tables []string
	s.DB.Raw(`
		SELECT quote_ident(table_name)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		AND table_name <> 'schema_migrations'
	`).Scan(&tables)
	if len(tables) == 0 {
		return
	}
	s.Require().NoError(s.DB.Exec("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE").Error)
}

func (s *RepositoryTestSuite) AssertNoDBError(err error, args ...interface{}) {
	s.Assert().NoError(err, args...)
}
