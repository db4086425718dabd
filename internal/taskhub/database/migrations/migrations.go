package migrations

import (
	"database/sql"
	"embed"

	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded schema to a SQLite database.
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, logger: logger}, nil
}

func (m *Migrator) Up() error {
	inst, err := m.instance()
	if err != nil {
		return err
	}
	err = inst.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate.Up failed")
	}
	m.logger.Debug("migrations applied")
	return nil
}

func (m *Migrator) Down() error {
	inst, err := m.instance()
	if err != nil {
		return err
	}
	err = inst.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate.Down failed")
	}
	m.logger.Debug("migrations reverted")
	return nil
}

// The migrate instance is not closed: closing it would close the shared *sql.DB.
func (m *Migrator) instance() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.WithInstance failed")
	}
	source, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "iofs.New failed")
	}
	inst, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, errors.Wrap(err, "migrate.NewWithInstance failed")
	}
	return inst, nil
}
