// Package points provides the append-only points ledger. Ledger entries are
// written only by privileged server-side paths (item approval, operator
// adjustments), never directly by end users. A user's balance is the running
// sum of their entries; the users.points column is a cache updated in the
// same transaction as each entry so it can never drift under concurrency.
package points

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable ledger record.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	RefID     uuid.UUID `json:"ref_id,omitempty"` // related item or offer
	CreatedAt time.Time `json:"created_at"`
}

// Store manages the points ledger in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a ledger store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Award appends a ledger entry and bumps the cached balance in one
// transaction. The balance update is a single atomic increment, never a
// read-then-write, so concurrent awards cannot lose updates.
func (s *Store) Award(ctx context.Context, userID uuid.UUID, delta int64, reason string, refID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("points: begin award: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO points_ledger (user_id, delta, reason, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, delta, reason, refID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("points: insert entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET points = points + $1 WHERE id = $2`,
		delta, userID,
	); err != nil {
		return fmt.Errorf("points: bump balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("points: commit award: %w", err)
	}
	return nil
}

// Balance returns the authoritative balance: the sum of the user's ledger
// entries. The users.points column is only a read cache of this value.
func (s *Store) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM points_ledger WHERE user_id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("points: balance: %w", err)
	}
	return balance, nil
}

// Entries returns the user's most recent ledger entries, newest first.
func (s *Store) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, delta, reason, ref_id, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("points: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.RefID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("points: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
