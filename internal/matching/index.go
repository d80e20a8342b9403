package matching

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/swaphub/marketplace/internal/catalog"
)

const (
	// Redis key patterns for the candidate index.
	keyCategoryPrefix = "catalog:"      // + <category> -> ZSET, score = computed value
	keyItemPrefix     = "catalog:item:" // + <item_id> -> Hash

	// indexTTL bounds staleness: entries expire unless the matcher's
	// reindex loop refreshes them from PostgreSQL.
	indexTTL = 10 * time.Minute
)

// Candidate is the slim item projection stored in the index. It carries just
// enough to run the engine and render a notification without a catalog read.
type Candidate struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	State       string
	DesiredSwap string
	Value       float64
}

// Index is a Redis-backed, per-category index of approved items sorted by
// computed value. It lets the matcher answer band queries with a single
// ZRANGEBYSCORE instead of a table scan, and is purely a cache: PostgreSQL
// remains the source of truth and the index self-expires if not refreshed.
type Index struct {
	rdb *redis.Client
}

// NewIndex creates a candidate index backed by Redis.
func NewIndex(rdb *redis.Client) *Index {
	return &Index{rdb: rdb}
}

// Add inserts or refreshes an approved item in its category's index.
func (ix *Index) Add(ctx context.Context, it catalog.Item) error {
	catKey := keyCategoryPrefix + string(it.Category)
	itemKey := keyItemPrefix + it.ID.String()

	pipe := ix.rdb.Pipeline()
	pipe.ZAdd(ctx, catKey, redis.Z{Score: Value(it), Member: it.ID.String()})
	pipe.Expire(ctx, catKey, indexTTL)
	pipe.HSet(ctx, itemKey, map[string]interface{}{
		"owner_id":     it.OwnerID.String(),
		"title":        it.Title,
		"state":        it.State,
		"desired_swap": it.DesiredSwap,
		"value":        fmt.Sprintf("%g", Value(it)),
	})
	pipe.Expire(ctx, itemKey, indexTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("matching: index add %s: %w", it.ID, err)
	}
	return nil
}

// Remove drops an item from its category's index. Used when an item leaves
// the approved state (edit, rejection, swap).
func (ix *Index) Remove(ctx context.Context, itemID uuid.UUID, category catalog.Category) error {
	pipe := ix.rdb.Pipeline()
	pipe.ZRem(ctx, keyCategoryPrefix+string(category), itemID.String())
	pipe.Del(ctx, keyItemPrefix+itemID.String())
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("matching: index remove %s: %w", itemID, err)
	}
	return nil
}

// BandCandidates returns all indexed items in a category whose value lies in
// the inclusive [min, max] band, excluding items owned by excludeOwner.
// Entries whose hash has expired are skipped; the reindex loop heals them.
func (ix *Index) BandCandidates(ctx context.Context, category catalog.Category, min, max float64, excludeOwner uuid.UUID) ([]Candidate, error) {
	ids, err := ix.rdb.ZRangeByScore(ctx, keyCategoryPrefix+string(category), &redis.ZRangeBy{
		Min: fmt.Sprintf("%g", min),
		Max: fmt.Sprintf("%g", max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("matching: band query %s: %w", category, err)
	}

	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		fields, err := ix.rdb.HGetAll(ctx, keyItemPrefix+id).Result()
		if err != nil || len(fields) == 0 {
			continue // stale index entry
		}

		itemID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		ownerID, err := uuid.Parse(fields["owner_id"])
		if err != nil || ownerID == excludeOwner {
			continue
		}

		value, _ := strconv.ParseFloat(fields["value"], 64)
		candidates = append(candidates, Candidate{
			ID:          itemID,
			OwnerID:     ownerID,
			Title:       fields["title"],
			State:       fields["state"],
			DesiredSwap: fields["desired_swap"],
			Value:       value,
		})
	}
	return candidates, nil
}

// Size returns the number of indexed items in a category.
func (ix *Index) Size(ctx context.Context, category catalog.Category) (int64, error) {
	return ix.rdb.ZCard(ctx, keyCategoryPrefix+string(category)).Result()
}
