// Package users provides the user profile store. It is the single source of
// truth for the admin role and carries the denormalized points balance cache
// maintained by the points ledger.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("users: user not found")

// User is a marketplace profile. Identity itself (credentials, email) is
// owned by the external identity provider; this record carries only what the
// marketplace needs.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	State       string    `json:"state"`
	LGA         string    `json:"lga"`
	IsAdmin     bool      `json:"is_admin"`
	Points      int64     `json:"points"` // cache; the ledger is authoritative
	CreatedAt   time.Time `json:"created_at"`
}

// Store manages user profiles in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ensure upserts a profile for a verified identity. Called on first
// authenticated request so externally issued identities materialize locally.
// The admin flag is never touched here; granting it is an operator action.
func (s *Store) Ensure(ctx context.Context, id uuid.UUID, displayName string) error {
	const query = `
		INSERT INTO users (id, display_name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name`

	_, err := s.db.ExecContext(ctx, query, id, displayName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("users: ensure: %w", err)
	}
	return nil
}

// Get retrieves a profile by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `
		SELECT id, display_name, state, lga, is_admin, points, created_at
		FROM users WHERE id = $1`

	var u User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.DisplayName, &u.State, &u.LGA, &u.IsAdmin, &u.Points, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return &u, nil
}

// IsAdmin reports whether a user holds the administrator role. This is the
// only role check in the system; nothing compares emails or other literals.
func (s *Store) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_admin FROM users WHERE id = $1`, id).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("users: is admin: %w", err)
	}
	return isAdmin, nil
}

// SetLocation updates the profile's state and LGA, used as ranking defaults
// for new listings.
func (s *Store) SetLocation(ctx context.Context, id uuid.UUID, state, lga string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET state = $1, lga = $2 WHERE id = $3`, state, lga, id)
	if err != nil {
		return fmt.Errorf("users: set location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
