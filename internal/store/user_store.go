package store

import (
	"context"

	"github.com/wolfeidau/taskbook/internal/models"
)

// UserStore is the credential store. Users are read-only to the web application,
// Create exists for the seed command.
type UserStore interface {
	// GetByUsername retrieves a user by their unique username.
	// Returns ErrUserNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// ListByDivision returns the users in a division ordered by name.
	ListByDivision(ctx context.Context, divisionID int64) ([]*models.UserSummary, error)

	// Create inserts a user and sets its ID.
	// Returns ErrUserAlreadyExists if the username is taken.
	Create(ctx context.Context, user *models.User) error
}

// DivisionStore manages divisions.
type DivisionStore interface {
	// List returns all divisions ordered by name.
	List(ctx context.Context) ([]*models.Division, error)

	// Create inserts a division and sets its ID, returning the existing
	// division if one with the same name is already present.
	Create(ctx context.Context, division *models.Division) error
}
