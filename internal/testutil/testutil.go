package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yourusername/survey-api/pkg/database"
	"github.com/yourusername/survey-api/pkg/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
)

// Logger returns a logger that discards output
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// MigrationsDir locates the repository's migrations folder
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// DB connects to TEST_POSTGRES_DSN once and applies the migrations.
// Tests are skipped when the variable is not set.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		m, err := database.NewMigrator(db, MigrationsDir())
		if err != nil {
			dbErr = err
			return
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
			dbErr = err
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		SkipUnlessRequired(tb, "TEST_POSTGRES_DSN")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// SkipUnlessRequired skips a test whose backing service is not configured.
// With REQUIRE_INTEGRATION set, as in CI, the test fails instead.
func SkipUnlessRequired(tb testing.TB, envVar string) {
	tb.Helper()
	if os.Getenv("REQUIRE_INTEGRATION") != "" {
		tb.Fatalf("%s is required when REQUIRE_INTEGRATION is set", envVar)
		return
	}
	tb.Skipf("set %s to run integration tests", envVar)
}

// Tx opens a transaction that is rolled back when the test ends
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
