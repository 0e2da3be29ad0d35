package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.DivisionStore = (*DivisionStore)(nil)

// DivisionStore implements store.DivisionStore using PostgreSQL.
type DivisionStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewDivisionStore creates a new PostgreSQL-backed division store.
func NewDivisionStore(pool *pgxpool.Pool, cfg StoreConfig) *DivisionStore {
	cfg.ApplyDefaults()
	return &DivisionStore{
		pool: pool,
		cfg:  cfg,
	}
}

// List returns all divisions ordered by name.
func (s *DivisionStore) List(ctx context.Context) ([]*models.Division, error) {
	query := `SELECT id, name FROM divisions ORDER BY name ASC`

	divisions := []*models.Division{}
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return mapPostgresError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var d models.Division
			if err := rows.Scan(&d.ID, &d.Name); err != nil {
				return fmt.Errorf("failed to scan division: %w", err)
			}
			divisions = append(divisions, &d)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}

	return divisions, nil
}

// Create inserts a division, an existing division with the same name is reused.
func (s *DivisionStore) Create(ctx context.Context, division *models.Division) error {
	query := `
		INSERT INTO divisions (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, division.Name).Scan(&division.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to create division: %w", mapPostgresError(err))
	}

	return nil
}
