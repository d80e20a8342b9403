package offers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/swaphub/marketplace/internal/catalog"
)

const offerColumns = `id, offered_item_id, target_item_id, offerer_id,
	target_owner_id, status, message, created_at, resolved_at`

// Store manages offers in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates an offer store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending offer from the offerer's item against the target
// item. Both items must currently be approved and the offerer must not own
// the target item.
func (s *Store) Create(ctx context.Context, offeredItemID, targetItemID, offererID uuid.UUID, message string) (*Offer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("offers: begin create: %w", err)
	}
	defer tx.Rollback()

	offered, err := lockItem(ctx, tx, offeredItemID)
	if err != nil {
		return nil, err
	}
	target, err := lockItem(ctx, tx, targetItemID)
	if err != nil {
		return nil, err
	}

	if offered.ownerID != offererID {
		return nil, catalog.ErrNotOwner
	}
	if target.ownerID == offererID {
		return nil, ErrSelfOffer
	}
	if offered.status != string(catalog.StatusApproved) || target.status != string(catalog.StatusApproved) {
		return nil, ErrItemUnavailable
	}

	offer := &Offer{
		ID:            uuid.New(),
		OfferedItemID: offeredItemID,
		TargetItemID:  targetItemID,
		OffererID:     offererID,
		TargetOwnerID: target.ownerID,
		Status:        StatusPending,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}

	const query = `
		INSERT INTO offers (id, offered_item_id, target_item_id, offerer_id,
			target_owner_id, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.ExecContext(ctx, query,
		offer.ID, offer.OfferedItemID, offer.TargetItemID, offer.OffererID,
		offer.TargetOwnerID, offer.Status, offer.Message, offer.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("offers: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("offers: commit create: %w", err)
	}
	return offer, nil
}

// Get retrieves an offer by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	o, err := scanOffer(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offers: get: %w", err)
	}
	return o, nil
}

// ListForUser returns all offers the user sent or received, newest first.
func (s *Store) ListForUser(ctx context.Context, userID uuid.UUID) ([]Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers
		WHERE offerer_id = $1 OR target_owner_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("offers: list for user: %w", err)
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("offers: scan: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Accept resolves a pending offer as accepted. In the same transaction both
// items move approved -> swapped, and every other pending offer touching
// either item is rejected so it cannot later be accepted against a swapped
// item. Only the target item's owner may accept.
func (s *Store) Accept(ctx context.Context, offerID, resolverID uuid.UUID) (*Offer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("offers: begin accept: %w", err)
	}
	defer tx.Rollback()

	offer, err := lockOffer(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.TargetOwnerID != resolverID {
		return nil, ErrNotTarget
	}
	if offer.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	// Both items must still be approved; the conditional update enforces it.
	res, err := tx.ExecContext(ctx, `
		UPDATE items SET status = $1, updated_at = $2
		WHERE id = ANY($3::uuid[]) AND status = $4`,
		catalog.StatusSwapped, time.Now().UTC(),
		pqArray(offer.OfferedItemID, offer.TargetItemID), catalog.StatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("offers: mark swapped: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		return nil, ErrItemUnavailable
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE offers SET status = $1, resolved_at = $2
		WHERE id = $3`,
		StatusAccepted, now, offer.ID,
	); err != nil {
		return nil, fmt.Errorf("offers: resolve: %w", err)
	}

	// Reject other pending offers that reference either swapped item.
	if _, err := tx.ExecContext(ctx, `
		UPDATE offers SET status = $1, resolved_at = $2
		WHERE status = $3 AND id <> $4
		  AND (offered_item_id = ANY($5::uuid[]) OR target_item_id = ANY($5::uuid[]))`,
		StatusRejected, now, StatusPending, offer.ID,
		pqArray(offer.OfferedItemID, offer.TargetItemID),
	); err != nil {
		return nil, fmt.Errorf("offers: reject stale offers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("offers: commit accept: %w", err)
	}

	offer.Status = StatusAccepted
	offer.ResolvedAt = &now
	return offer, nil
}

// Reject resolves a pending offer as rejected. Only the target item's owner
// may reject.
func (s *Store) Reject(ctx context.Context, offerID, resolverID uuid.UUID) (*Offer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("offers: begin reject: %w", err)
	}
	defer tx.Rollback()

	offer, err := lockOffer(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.TargetOwnerID != resolverID {
		return nil, ErrNotTarget
	}
	if offer.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE offers SET status = $1, resolved_at = $2 WHERE id = $3`,
		StatusRejected, now, offer.ID,
	); err != nil {
		return nil, fmt.Errorf("offers: resolve: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("offers: commit reject: %w", err)
	}

	offer.Status = StatusRejected
	offer.ResolvedAt = &now
	return offer, nil
}

// lockedItem is the minimal item projection read under FOR UPDATE.
type lockedItem struct {
	ownerID uuid.UUID
	status  string
}

func lockItem(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*lockedItem, error) {
	var li lockedItem
	err := tx.QueryRowContext(ctx,
		`SELECT owner_id, status FROM items WHERE id = $1 FOR UPDATE`, id,
	).Scan(&li.ownerID, &li.status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offers: lock item %s: %w", id, err)
	}
	return &li, nil
}

func lockOffer(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`
	o, err := scanOffer(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offers: lock offer %s: %w", id, err)
	}
	return o, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOffer(row rowScanner) (*Offer, error) {
	var (
		o        Offer
		resolved sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OfferedItemID, &o.TargetItemID, &o.OffererID,
		&o.TargetOwnerID, &o.Status, &o.Message, &o.CreatedAt, &resolved,
	)
	if err != nil {
		return nil, err
	}
	if resolved.Valid {
		o.ResolvedAt = &resolved.Time
	}
	return &o, nil
}

// pqArray builds a uuid[] parameter accepted by the pq driver.
func pqArray(ids ...uuid.UUID) interface{} {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
