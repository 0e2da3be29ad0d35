package commands

import (
	"context"
	"fmt"

	postgresstore "github.com/wolfeidau/taskbook/internal/store/postgres"
)

type MigrateCmd struct {
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	if err := c.Postgres.Validate(); err != nil {
		return fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, c.Postgres.poolConfig())
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	report, err := postgresstore.RunMigrations(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().
		Ints("applied", report.Applied).
		Ints("skipped", report.Skipped).
		Int("schema_version", report.Current()).
		Msg("Migrations complete")
	return nil
}
