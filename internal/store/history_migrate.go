package store

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationDir maps a backend to its embedded migrations directory.
func migrationDir(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "migrations/mysql"
	case schema.PostgreSQLBackend:
		return "migrations/postgres"
	default:
		return "migrations/sqlite"
	}
}

// MigrateHistory moves the history schema to targetVersion and reports the
// outcome on w. A negative target means the latest version and 0 removes every
// migration.
func MigrateHistory(w io.Writer, backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.NoneBackend {
		return fmt.Errorf("migrations are not supported for NoneBackend")
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db.DB, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sub, err := fs.Sub(migrationsFS, migrationDir(backend))
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "backupwatch", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read history schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("history schema is dirty at version %d, fix it manually or force a version", from)
	}

	err = stepTo(m, targetVersion)
	if errors.Is(err, migrate.ErrNoChange) {
		_, _ = fmt.Fprintf(w, "History schema already at %s\n", describeVersion(targetVersion))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate history schema to %s: %w", describeVersion(targetVersion), err)
	}

	to, _, _ := m.Version()
	_, _ = fmt.Fprintf(w, "History schema migrated from version %d to version %d\n", from, to)
	return nil
}

// stepTo applies the migrations that reach target.
func stepTo(m *migrate.Migrate, target int) error {
	switch {
	case target < 0:
		return m.Up()
	case target == 0:
		return m.Down()
	default:
		return m.Migrate(uint(target))
	}
}

func describeVersion(target int) string {
	if target < 0 {
		return "the latest version"
	}
	return fmt.Sprintf("version %d", target)
}
