package database

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending migrations from the given source directory,
// e.g. "file://migrations".
func (p *Postgres) Migrate(sourceURL string) error {
	driver, err := postgres.WithInstance(p.Db.DB, &postgres.Config{})
	if err != nil {
		log.Error("Failed to create migration driver: ", err)
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		log.Error("Failed to create migrator: ", err)
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Failed to apply migrations: ", err)
		return err
	}

	return nil
}
