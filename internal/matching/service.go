package matching

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/swaphub/marketplace/internal/catalog"
	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
)

// reindexInterval is how often the full approved catalog is re-synced from
// PostgreSQL into the Redis index. It must be shorter than the index TTL.
const reindexInterval = 5 * time.Minute

// Service is the background matching service. It keeps the Redis candidate
// index in sync with the catalog and, whenever an item is newly approved,
// notifies the owners of in-band counterparts that a match now exists. All
// notifications are fire-and-forget: a publish failure is logged, never
// retried, and never blocks the approval flow that triggered it.
type Service struct {
	index   *Index
	catalog *catalog.Store
	nats    *messaging.NATSClient
	rdb     *redis.Client
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a new matching service.
func NewService(rdb *redis.Client, cat *catalog.Store, nats *messaging.NATSClient) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		index:   NewIndex(rdb),
		catalog: cat,
		nats:    nats,
		rdb:     rdb,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to NATS subjects and starts the reindex loop.
func (s *Service) Start() error {
	if err := s.nats.SubscribeItemApproved(s.handleItemApproved); err != nil {
		return err
	}
	if err := s.nats.SubscribeItemRejected(s.handleItemGone); err != nil {
		return err
	}
	if err := s.nats.SubscribeItemUpdated(s.handleItemGone); err != nil {
		return err
	}

	if err := s.Reindex(s.ctx); err != nil {
		log.Printf("[matcher] initial reindex: %v", err)
	}
	go s.reindexLoop()

	log.Println("[matcher] service started")
	return nil
}

// Stop gracefully shuts down the matching service.
func (s *Service) Stop() {
	s.cancel()
	log.Println("[matcher] service stopped")
}

// handleItemApproved adds the newly approved item to the index and notifies
// owners of in-band counterparts on both sides of the pairing.
func (s *Service) handleItemApproved(data []byte) {
	var ev messaging.ItemEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[matcher] invalid item event: %v", err)
		return
	}

	itemID, err := uuid.Parse(ev.ItemID)
	if err != nil {
		log.Printf("[matcher] invalid item id %q: %v", ev.ItemID, err)
		return
	}

	item, err := s.catalog.Get(s.ctx, itemID)
	if err != nil {
		log.Printf("[matcher] load item %s: %v", ev.ItemID, err)
		return
	}
	if item.Status != catalog.StatusApproved {
		return // raced with a later transition; nothing to announce
	}

	if err := s.index.Add(s.ctx, *item); err != nil {
		log.Printf("[matcher] index add %s: %v", item.ID, err)
	}

	s.announceMatches(*item)
}

// handleItemGone removes items that left the approved state from the index.
func (s *Service) handleItemGone(data []byte) {
	var ev messaging.ItemEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[matcher] invalid item event: %v", err)
		return
	}
	if ev.Status == string(catalog.StatusApproved) {
		return
	}

	itemID, err := uuid.Parse(ev.ItemID)
	if err != nil {
		return
	}
	if err := s.index.Remove(s.ctx, itemID, catalog.Category(ev.Category)); err != nil {
		log.Printf("[matcher] index remove %s: %v", ev.ItemID, err)
	}
}

// announceMatches finds in-band counterparts for a freshly approved item and
// publishes a match.found event to each counterpart's owner (their listing
// has a new potential swap) and one to the new item's owner per match.
func (s *Service) announceMatches(item catalog.Item) {
	start := time.Now()

	min, max := Band(Value(item))
	candidates, err := s.index.BandCandidates(s.ctx, item.Category, min, max, item.OwnerID)
	if err != nil {
		// Degrade to silence: matching is an enhancement, not a requirement.
		log.Printf("[matcher] band candidates for %s: %v", item.ID, err)
		return
	}

	for _, c := range candidates {
		if c.ID == item.ID {
			continue
		}

		delta := Value(item) - c.Value
		verdict := VerdictFair
		if delta > 0 {
			verdict = VerdictCandidateHigher // from the counterpart owner's view
		} else if delta < 0 {
			verdict = VerdictSourceHigher
		}

		// Tell the counterpart's owner their listing has a new match.
		publishMatchFound(s.nats, c.OwnerID.String(), messaging.MatchFoundEvent{
			ItemID:        c.ID.String(),
			MatchedItemID: item.ID.String(),
			MatchedTitle:  item.Title,
			Delta:         delta,
			Verdict:       string(verdict),
		})

		// And tell the new item's owner about the existing counterpart.
		publishMatchFound(s.nats, item.OwnerID.String(), messaging.MatchFoundEvent{
			ItemID:        item.ID.String(),
			MatchedItemID: c.ID.String(),
			MatchedTitle:  c.Title,
			Delta:         -delta,
			Verdict:       string(invert(verdict)),
		})
	}

	metrics.MatchesComputed.Inc()
	metrics.MatchDuration.Observe(time.Since(start).Seconds())
	if len(candidates) > 0 {
		log.Printf("[matcher] item=%s category=%s matches=%d band=[%g,%g]",
			item.ID, item.Category, len(candidates), min, max)
	}
}

// reindexLoop periodically rebuilds the index from the catalog so expired or
// drifted entries heal without operator action.
func (s *Service) reindexLoop() {
	ticker := time.NewTicker(reindexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("[matcher] reindex loop stopped")
			return
		case <-ticker.C:
			if err := s.Reindex(s.ctx); err != nil {
				log.Printf("[matcher] reindex: %v", err)
			}
		}
	}
}

// Reindex reloads every approved item from PostgreSQL into the Redis index.
func (s *Service) Reindex(ctx context.Context) error {
	total := 0
	for _, cat := range catalog.Categories {
		items, err := s.catalog.Candidates(ctx, cat, uuid.Nil)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.index.Add(ctx, it); err != nil {
				log.Printf("[matcher] reindex add %s: %v", it.ID, err)
				continue
			}
			total++
		}
	}
	log.Printf("[matcher] reindexed %d approved items", total)
	return nil
}

func publishMatchFound(nats *messaging.NATSClient, userID string, ev messaging.MatchFoundEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[matcher] marshal match event: %v", err)
		return
	}
	if err := nats.PublishMatchFound(userID, data); err != nil {
		log.Printf("[matcher] publish match.found for %s: %v", userID, err)
	}
}

func invert(v Verdict) Verdict {
	switch v {
	case VerdictCandidateHigher:
		return VerdictSourceHigher
	case VerdictSourceHigher:
		return VerdictCandidateHigher
	default:
		return VerdictFair
	}
}
