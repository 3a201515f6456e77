package infra

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/gorm"

	postgres_wrapper "github.com/joripage/matching-core/pkg/infra/postgres"
)

// IMigrateTool applies the execution-event schema.
type IMigrateTool interface {
	// CreateDBAndMigrate waits for the database, migrates it and returns the connection.
	CreateDBAndMigrate(cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error)

	// Migrate from current version to latest version.
	Migrate(source string, connStr string) error
}

type migrateTool struct {
	mu sync.Mutex
}

var once sync.Once         // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate runs pending up migrations. A dirty schema is forced back one
// version before retrying.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	sugar := zap.S().With("func", "infra.Migrate", "source", source)
	sugar.Info("migrating...")

	mg, err := migrate.New(source, connStr)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	if dirty {
		sugar.Warnf("schema version %d is dirty, forcing %d", version, int(version)-1)
		if err := mg.Force(int(version) - 1); err != nil {
			return fmt.Errorf("force schema version: %w", err)
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	sugar.Info("migration done")
	return nil
}

func (mt *migrateTool) CreateDBAndMigrate(cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error) {
	var db *gorm.DB
	boff := backoff.NewExponentialBackOff()

	err := backoff.Retry(func() error {
		var errNested error
		db, errNested = postgres_wrapper.InitPostgres(cfg)
		if errNested != nil {
			zap.S().Warnf("connect postgres error: %v", errNested)
		}
		return errNested
	}, boff)
	if err != nil {
		return nil, err
	}

	if err := mt.Migrate(source, cfg.MigrationConnURL); err != nil {
		return nil, err
	}
	return db, nil
}
