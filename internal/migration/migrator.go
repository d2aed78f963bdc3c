// Package migration manages the run-history schema through embedded
// SQL migrations, one set per supported dialect.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

// Migrator applies the embedded run-history migrations to an open
// database handle.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New builds a Migrator for db using the migration set matching
// driver (sqlite, mysql, or postgres).
func New(db *sql.DB, driver string, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		dbDriver database.Driver
		fsys     embed.FS
		err      error
	)
	switch driver {
	case "sqlite":
		fsys = sqliteFS
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case "postgres":
		fsys = postgresFS
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case "mysql":
		fsys = mysqlFS
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
	default:
		return nil, fmt.Errorf("migration: unsupported driver: %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migration: preparing %s driver: %w", driver, err)
	}

	src, err := iofs.New(fsys, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("migration: loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("migration: building migrator: %w", err)
	}

	return &Migrator{
		m:      m,
		logger: logger.With(zap.String("component", "migration")),
	}, nil
}

// Up applies all pending migrations. An already up-to-date schema is
// not an error.
func (mg *Migrator) Up() error {
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration: applying migrations: %w", err)
	}

	version, _, _ := mg.m.Version()
	mg.logger.Info("migrations applied", zap.Uint("version", version))
	return nil
}

// Down rolls back the most recent migration.
func (mg *Migrator) Down() error {
	if err := mg.m.Steps(-1); err != nil {
		return fmt.Errorf("migration: rolling back: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether the last run
// left it dirty. A fresh database reports version zero.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration: reading version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the schema version without running migrations, clearing
// a dirty flag after manual repair.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("migration: forcing version %d: %w", version, err)
	}
	return nil
}
