package sqlstore

import (
	"database/sql"
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	migrations "github.com/riskibarqy/perf-import/db/migrations"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
)

// NewMigrator builds a migrator over the embedded schema for dialect.
// Closing the migrator closes db as well.
func NewMigrator(db *sql.DB, dialect qb.Dialect) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, string(dialect))
	if err != nil {
		return nil, crerr.Wrapf(err, "open %s migrations", dialect)
	}

	var driver database.Driver
	switch dialect {
	case qb.Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case qb.SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, crerr.Newf("unsupported sql dialect %q", dialect)
	}
	if err != nil {
		return nil, crerr.Wrapf(err, "create %s migration driver", dialect)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return nil, crerr.Wrap(err, "create migrator")
	}
	return m, nil
}

// MigrateUp applies every pending migration. It leaves db open.
func MigrateUp(db *sql.DB, dialect qb.Dialect) error {
	m, err := NewMigrator(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return crerr.Wrap(err, "apply migrations")
	}
	return nil
}
