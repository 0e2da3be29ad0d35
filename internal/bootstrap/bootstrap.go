package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Bootstrap provisions the divisions and users of the seed file.
// Divisions are reused by name and users that already exist are left untouched,
// so running it again against the same store is safe.
func Bootstrap(ctx context.Context, cfg Config) (*Resources, error) {
	// Validate config
	if cfg.Users == nil {
		return nil, fmt.Errorf("Users store is required")
	}
	if cfg.Divisions == nil {
		return nil, fmt.Errorf("Divisions store is required")
	}
	if cfg.Seed == nil {
		return nil, fmt.Errorf("Seed is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	resources := &Resources{
		Divisions: make(map[string]int64),
	}

	for _, d := range cfg.Seed.Divisions {
		division := &models.Division{Name: d.Name}
		if err := cfg.Divisions.Create(ctx, division); err != nil {
			return nil, fmt.Errorf("failed to create division %q: %w", d.Name, err)
		}
		resources.Divisions[d.Name] = division.ID
	}

	for _, u := range cfg.Seed.Users {
		hash := u.PasswordHash
		if hash == "" {
			hashed, err := HashPassword(u.Password, cfg.BcryptCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password for %q: %w", u.Username, err)
			}
			hash = hashed
		}

		err := cfg.Users.Create(ctx, &models.User{
			Username:     u.Username,
			PasswordHash: hash,
			Name:         u.Name,
			Role:         u.Role,
			DivisionID:   resources.Divisions[u.Division],
		})
		if errors.Is(err, store.ErrUserAlreadyExists) {
			log.Debug().Str("username", u.Username).Msg("User exists, skipping")
			resources.UsersSkipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user %q: %w", u.Username, err)
		}
		resources.UsersCreated++
	}

	log.Info().
		Int("divisions", len(resources.Divisions)).
		Int("users_created", resources.UsersCreated).
		Int("users_skipped", resources.UsersSkipped).
		Msg("Bootstrap complete")

	return resources, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
