package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const itemColumns = `id, owner_id, title, description, category, estimated_value,
	cash_balance, state, lga, desired_swap, image_url, status, review_reason,
	created_at, updated_at`

// Store manages items in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates an item store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new item. The id is assigned here and the status is always
// pending regardless of what the caller set.
func (s *Store) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}

	it.ID = uuid.New()
	it.Status = StatusPending
	it.ReviewReason = ""
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now

	const query = `
		INSERT INTO items (id, owner_id, title, description, category,
			estimated_value, cash_balance, state, lga, desired_swap, image_url,
			status, review_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.db.ExecContext(ctx, query,
		it.ID, it.OwnerID, it.Title, it.Description, it.Category,
		it.EstimatedValue, it.CashBalance, it.State, it.LGA, it.DesiredSwap,
		it.ImageURL, it.Status, it.ReviewReason, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog: insert item: %w", err)
	}
	return nil
}

// Get retrieves an item by id. Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	it, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get item: %w", err)
	}
	return it, nil
}

// Update applies an owner edit. Any edit sends the item back to pending and
// clears the previous review reason, forcing a fresh review cycle. Returns
// ErrNotOwner if ownerID does not own the item.
func (s *Store) Update(ctx context.Context, ownerID uuid.UUID, it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}

	const query = `
		UPDATE items
		SET title = $1, description = $2, category = $3, estimated_value = $4,
			cash_balance = $5, state = $6, lga = $7, desired_swap = $8,
			image_url = $9, status = $10, review_reason = '', updated_at = $11
		WHERE id = $12 AND owner_id = $13`

	res, err := s.db.ExecContext(ctx, query,
		it.Title, it.Description, it.Category, it.EstimatedValue,
		it.CashBalance, it.State, it.LGA, it.DesiredSwap, it.ImageURL,
		StatusPending, time.Now().UTC(), it.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("catalog: update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, it.ID); err != nil {
			return err
		}
		return ErrNotOwner
	}
	return nil
}

// Delete removes an item owned by ownerID.
func (s *Store) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("catalog: delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotOwner
	}
	return nil
}

// Filter narrows a List query. Zero values mean "no constraint", so value
// bounds of exactly zero cannot be expressed; they are not needed in practice.
type Filter struct {
	Status   Status
	Category Category
	State    string
	OwnerID  uuid.UUID // only this owner's items
	MinValue float64
	MaxValue float64
	Limit    int
}

// List returns items matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Item, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.State != "" {
		add("state = $%d", f.State)
	}
	if f.OwnerID != uuid.Nil {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.MinValue > 0 {
		add("estimated_value + cash_balance >= $%d", f.MinValue)
	}
	if f.MaxValue > 0 {
		add("estimated_value + cash_balance <= $%d", f.MaxValue)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Candidates returns the match candidate pool for a category: approved items
// not owned by excludeOwner, newest first. This is the upstream contract the
// matching engine consumes; it never includes non-approved items.
func (s *Store) Candidates(ctx context.Context, category Category, excludeOwner uuid.UUID) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE status = $1 AND category = $2 AND owner_id <> $3
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, StatusApproved, category, excludeOwner)
	if err != nil {
		return nil, fmt.Errorf("catalog: candidate pool: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Approve flips a pending item to approved. The conditional update makes the
// transition first-writer-wins: under concurrent approvals exactly one caller
// sees approved=true, so downstream point awards happen exactly once.
// Returns the item in its post-approval state.
func (s *Store) Approve(ctx context.Context, id uuid.UUID) (bool, *Item, error) {
	query := `
		UPDATE items SET status = $1, review_reason = '', updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + itemColumns

	it, err := scanItem(s.db.QueryRowContext(ctx, query,
		StatusApproved, time.Now().UTC(), id, StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		// Not pending: either missing or already reviewed.
		existing, getErr := s.Get(ctx, id)
		if getErr != nil {
			return false, nil, getErr
		}
		return false, existing, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("catalog: approve item: %w", err)
	}
	return true, it, nil
}

// Reject flips a pending item to rejected with a human-readable reason that
// will be shown to the owner. Returns false if the item was not pending.
func (s *Store) Reject(ctx context.Context, id uuid.UUID, reason string) (bool, *Item, error) {
	if err := ValidateRejectReason(reason); err != nil {
		return false, nil, err
	}

	query := `
		UPDATE items SET status = $1, review_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING ` + itemColumns

	it, err := scanItem(s.db.QueryRowContext(ctx, query,
		StatusRejected, reason, time.Now().UTC(), id, StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.Get(ctx, id)
		if getErr != nil {
			return false, nil, getErr
		}
		return false, existing, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("catalog: reject item: %w", err)
	}
	return true, it, nil
}

// CountByStatus returns the number of items per status, for metrics.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("catalog: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			st Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("catalog: count by status scan: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Category,
		&it.EstimatedValue, &it.CashBalance, &it.State, &it.LGA,
		&it.DesiredSwap, &it.ImageURL, &it.Status, &it.ReviewReason,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}
