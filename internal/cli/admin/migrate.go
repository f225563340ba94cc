package admin

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsSource = "file://migrations"

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the database schema",
		Long:      "Apply (up), roll back (down) or report (version) the regulation chunk schema. Defaults to up.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if !cfg.HasDatabase() {
				return fmt.Errorf("PLANCHECK_DATABASE_URL is required")
			}

			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrations(cfg.DatabaseURL, source, direction, log)
		},
	}

	cmd.Flags().StringVar(&source, "source", defaultMigrationsSource, "Migration source URL")

	return cmd
}

func runMigrations(databaseURL, source, direction string, log *zap.Logger) error {
	switch direction {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	// golang-migrate needs a database/sql handle
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("migrations: no migrations applied")
		return nil
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	log.Info("migrations: database schema ready", zap.String("direction", direction), zap.Uint("version", version))
	return nil
}
