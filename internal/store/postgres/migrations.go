package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID serializes taskbook migrators, e.g. several servers started with --postgres-auto-migrate.
const migrationLockID int64 = 0x7461736b626f6f6b // "taskbook"

// Migration is one numbered schema change, loaded from "<version>_<name>.sql".
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationReport lists the versions applied by a run and those already present.
type MigrationReport struct {
	Applied []int
	Skipped []int
}

// Current returns the highest known schema version, zero when there are none.
func (r *MigrationReport) Current() int {
	return max(slices.Max(append([]int{0}, r.Applied...)), slices.Max(append([]int{0}, r.Skipped...)))
}

// loadMigrations reads the .sql files of fsys ordered by version.
// A file without a numeric version prefix or a repeated version is an error.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	seen := make(map[int]string, len(files))
	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		prefix, _, ok := strings.Cut(path.Base(file), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must be <version>_<name>.sql", file)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d already used by %s", file, version, other)
		}
		seen[version] = file

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		migrations = append(migrations, Migration{Version: version, Name: file, SQL: string(content)})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })

	return migrations, nil
}

// RunMigrations applies the embedded migrations that are not yet recorded in schema_migrations.
// Each migration and its version row commit together. Concurrent callers wait on an advisory lock.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) (*MigrationReport, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	migrations, err := loadMigrations(sub)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID); err != nil {
			log.Warn().Err(err).Msg("Failed to release migration lock")
		}
	}()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	report := &MigrationReport{}
	for _, m := range migrations {
		if slices.Contains(applied, m.Version) {
			report.Skipped = append(report.Skipped, m.Version)
			continue
		}

		if err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		}); err != nil {
			return report, fmt.Errorf("migration %s failed: %w", m.Name, err)
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Migration applied")
		report.Applied = append(report.Applied, m.Version)
	}

	return report, nil
}
