// Package migration drives the numbered SQL migrations with golang-migrate
// and scaffolds new ones.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies migrations read from an fs.FS to a postgres database.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Dir returns the migrations found in a directory on disk.
func Dir(path string) fs.FS { return os.DirFS(path) }

// New validates the migration set in src and binds it to db.
func New(db *sql.DB, src fs.FS, log *zap.Logger) (*Migrator, error) {
	if err := Check(src); err != nil {
		return nil, err
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m, log: log.Named("migrate")}, nil
}

// Up applies every pending migration.
func (g *Migrator) Up() error { return g.apply("up", g.m.Up) }

// Down reverts every applied migration.
func (g *Migrator) Down() error { return g.apply("down", g.m.Down) }

// Steps moves n migrations forward, or back when n is negative.
func (g *Migrator) Steps(n int) error {
	return g.apply(fmt.Sprintf("steps %d", n), func() error { return g.m.Steps(n) })
}

// GoTo moves to exactly version.
func (g *Migrator) GoTo(version uint) error {
	return g.apply(fmt.Sprintf("goto %d", version), func() error { return g.m.Migrate(version) })
}

// Version reports the applied version; 0 means a fresh database.
func (g *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = g.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without running SQL.
func (g *Migrator) Force(version int) error {
	g.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := g.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (g *Migrator) apply(op string, run func() error) error {
	from, _, _ := g.Version()
	err := run()
	if errors.Is(err, migrate.ErrNoChange) {
		g.log.Info("Schema unchanged", zap.String("op", op), zap.Uint("version", from))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	to, dirty, err := g.Version()
	if err != nil {
		return err
	}
	g.log.Info("Schema migrated",
		zap.String("op", op),
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Bool("dirty", dirty),
	)
	return nil
}
