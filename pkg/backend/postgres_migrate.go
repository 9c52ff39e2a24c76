package backend

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const migrationsTable = "taskqueue_migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// MigratePostgres brings the postgres schema up to date.
func MigratePostgres(opts *Options) error {
	opts.SetDefaults()

	db, err := sql.Open("postgres", opts.expandURL())
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := mpg.WithInstance(db, &mpg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		opts.Logger.Info().Msg("schema up to date")
		return nil
	} else if err == nil {
		opts.Logger.Info().Msg("schema migrated")
	}
	return err
}
