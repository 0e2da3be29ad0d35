package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool, cfg StoreConfig) *UserStore {
	cfg.ApplyDefaults()
	return &UserStore{
		pool: pool,
		cfg:  cfg,
	}
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, name, role, division_id, created_at
		FROM users
		WHERE username = $1
	`

	var user models.User
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, username).Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.Name,
			&user.Role,
			&user.DivisionID,
			&user.CreatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return &user, nil
}

// ListByDivision returns the users of a division ordered by name.
func (s *UserStore) ListByDivision(ctx context.Context, divisionID int64) ([]*models.UserSummary, error) {
	query := `
		SELECT id, name, username
		FROM users
		WHERE division_id = $1
		ORDER BY name ASC
	`

	users := []*models.UserSummary{}
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, divisionID)
		if err != nil {
			return mapPostgresError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var u models.UserSummary
			if err := rows.Scan(&u.ID, &u.Name, &u.Username); err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			users = append(users, &u)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, name, role, division_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query,
			user.Username,
			user.PasswordHash,
			user.Name,
			user.Role,
			user.DivisionID,
		).Scan(&user.ID, &user.CreatedAt)
	})
	if err != nil {
		err = mapPostgresError(err)
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("Created user")

	return nil
}
