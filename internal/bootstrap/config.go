package bootstrap

import (
	"fmt"
	"os"

	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
	"gopkg.in/yaml.v3"
)

// Config holds the stores and seed data for bootstrapping an environment
type Config struct {
	Users     store.UserStore
	Divisions store.DivisionStore

	Seed *SeedFile

	// BcryptCost is used to hash plaintext seed passwords, zero means bcrypt.DefaultCost
	BcryptCost int
}

// SeedFile is the YAML document describing divisions and users to provision.
type SeedFile struct {
	Divisions []SeedDivision `yaml:"divisions"`
	Users     []SeedUser     `yaml:"users"`
}

type SeedDivision struct {
	Name string `yaml:"name"`
}

// SeedUser describes a user. Exactly one of Password (hashed while seeding)
// and PasswordHash (an existing bcrypt hash) must be set.
type SeedUser struct {
	Username     string      `yaml:"username"`
	Name         string      `yaml:"name"`
	Role         models.Role `yaml:"role"`
	Division     string      `yaml:"division"`
	Password     string      `yaml:"password"`
	PasswordHash string      `yaml:"password_hash"`
}

// Resources reports what Bootstrap created
type Resources struct {
	// Division IDs by name
	Divisions map[string]int64

	UsersCreated int
	UsersSkipped int
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return ParseSeed(data)
}

// ParseSeed decodes and validates a YAML seed document.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Validate checks that every user names a known division, a valid role and one password form.
func (s *SeedFile) Validate() error {
	divisions := make(map[string]bool, len(s.Divisions))
	for _, d := range s.Divisions {
		if d.Name == "" {
			return fmt.Errorf("seed division name is required")
		}
		divisions[d.Name] = true
	}

	seen := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		switch {
		case u.Username == "":
			return fmt.Errorf("seed user username is required")
		case seen[u.Username]:
			return fmt.Errorf("seed user %q is listed twice", u.Username)
		case u.Name == "":
			return fmt.Errorf("seed user %q: name is required", u.Username)
		case !u.Role.Valid():
			return fmt.Errorf("seed user %q: invalid role %q", u.Username, u.Role)
		case !divisions[u.Division]:
			return fmt.Errorf("seed user %q: unknown division %q", u.Username, u.Division)
		case (u.Password == "") == (u.PasswordHash == ""):
			return fmt.Errorf("seed user %q: set exactly one of password or password_hash", u.Username)
		}
		seen[u.Username] = true
	}

	return nil
}
