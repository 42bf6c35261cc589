// Package repo implements the persistence layer: database bootstrapping,
// schema provisioning, the deduplicating writer, and the analytic read
// queries. Production runs on PostgreSQL; SQLite (pure Go driver) backs
// local runs and the test suite.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mpetrenko/hh-scout/internal/domain"
)

// OpenPostgres connects to PostgreSQL and tunes the connection pool. When
// traced is set, GORM's OpenTelemetry plugin instruments every query.
func OpenPostgres(dsn string, traced bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if traced {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	tunePool(db)
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// Used for local runs without a PostgreSQL instance and by tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist, instead of the
	// driver's opaque "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	// DSN pragmas apply to every pooled connection, not just the first.
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	tunePool(db)
	return db, nil
}

func tunePool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// Provision ensures the employers and vacancies tables exist with their
// indexes and the employer foreign key. The writer treats this as a
// precondition.
func Provision(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Employer{},
		&domain.Vacancy{},
	)
}
