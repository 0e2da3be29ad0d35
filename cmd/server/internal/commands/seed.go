package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/taskbook/internal/bootstrap"
	postgresstore "github.com/wolfeidau/taskbook/internal/store/postgres"
)

type SeedCmd struct {
	File     string        `arg:"" help:"YAML seed file with divisions and users" type:"existingfile"`
	Migrate  bool          `help:"apply migrations before seeding" default:"false"`
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	if err := c.Postgres.Validate(); err != nil {
		return fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	seed, err := bootstrap.LoadSeedFile(c.File)
	if err != nil {
		return err
	}

	pool, err := postgresstore.NewPool(ctx, c.Postgres.poolConfig())
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if c.Migrate || c.Postgres.AutoMigrate {
		if _, err := postgresstore.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cfg := c.Postgres.storeConfig()
	resources, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		Users:     postgresstore.NewUserStore(pool, cfg),
		Divisions: postgresstore.NewDivisionStore(pool, cfg),
		Seed:      seed,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("file", c.File).
		Int("users_created", resources.UsersCreated).
		Int("users_skipped", resources.UsersSkipped).
		Msg("Seed loaded")
	return nil
}
