package models

import (
	"time"
)

// Role is the authorization role carried by a user and their session token.
type Role string

const (
	RoleAdmin Role = "ADMIN" // Can view the aggregate report across all divisions
	RoleUser  Role = "USER"  // Can only manage their own tasks
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// User represents an account that can log in.
// Users are provisioned out of band (seed command), the application only reads them.
type User struct {
	ID           int64
	Username     string // Unique
	PasswordHash string // bcrypt
	Name         string // Display name
	Role         Role
	DivisionID   int64 // FK to divisions
	CreatedAt    time.Time
}

// UserSummary is the public view of a user returned by the admin user listing.
type UserSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
