package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
)

// Service consumes marketplace events from NATS, writes them to the
// recipients' Redis inboxes and relays them onto the realtime feed subjects.
// It is the only component that decides who gets told about what.
type Service struct {
	store *Store
	nats  *messaging.NATSClient
}

// NewService creates the notifier service.
func NewService(store *Store, natsClient *messaging.NATSClient) *Service {
	return &Service{store: store, nats: natsClient}
}

// Start registers all event subscriptions. Handlers run on NATS callback
// goroutines; each one is independent, so a slow inbox write never blocks
// the other channels.
func (s *Service) Start() error {
	if err := s.nats.SubscribeItemApproved(s.handleItemReviewed); err != nil {
		return fmt.Errorf("notify: subscribe item.approved: %w", err)
	}
	if err := s.nats.SubscribeItemRejected(s.handleItemReviewed); err != nil {
		return fmt.Errorf("notify: subscribe item.rejected: %w", err)
	}
	if err := s.nats.SubscribeOfferCreated(s.handleOfferCreated); err != nil {
		return fmt.Errorf("notify: subscribe offer.created: %w", err)
	}
	if err := s.nats.SubscribeOfferResolved(s.handleOfferResolved); err != nil {
		return fmt.Errorf("notify: subscribe offer.resolved: %w", err)
	}
	if err := s.nats.SubscribeMatchFoundAll(s.handleMatchFound); err != nil {
		return fmt.Errorf("notify: subscribe match.found: %w", err)
	}

	log.Printf("[notify] service started")
	return nil
}

// deliver writes the notification to the inbox and mirrors it to the user's
// feed subject. Failures are logged and dropped: notifications are
// best-effort by contract.
func (s *Service) deliver(userID string, n Notification) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		log.Printf("[notify] bad user id %q: %v", userID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Push(ctx, uid, n); err != nil {
		log.Printf("[notify] push inbox %s: %v", userID, err)
	} else {
		metrics.NotificationsTotal.Inc()
	}

	feed := messaging.FeedEvent{
		Kind:    n.Kind,
		ItemID:  n.ItemID,
		OfferID: n.OfferID,
		Text:    n.Text,
		Ts:      time.Now().Unix(),
	}
	payload, err := json.Marshal(feed)
	if err != nil {
		log.Printf("[notify] marshal feed event: %v", err)
		return
	}
	if err := s.nats.PublishFeedEvent(userID, payload); err != nil {
		log.Printf("[notify] publish feed %s: %v", userID, err)
	}
}

func (s *Service) handleItemReviewed(data []byte) {
	var ev messaging.ItemEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[notify] bad item event: %v", err)
		return
	}

	n := Notification{ItemID: ev.ItemID}
	switch ev.Status {
	case "approved":
		n.Kind = KindItemApproved
		n.Text = fmt.Sprintf("Your listing %q was approved and is now visible.", ev.Title)
	case "rejected":
		n.Kind = KindItemRejected
		n.Text = fmt.Sprintf("Your listing %q was rejected: %s", ev.Title, ev.Reason)
	default:
		return
	}

	s.deliver(ev.OwnerID, n)
}

func (s *Service) handleOfferCreated(data []byte) {
	var ev messaging.OfferEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[notify] bad offer event: %v", err)
		return
	}

	s.deliver(ev.TargetOwnerID, Notification{
		Kind:    KindOfferReceived,
		OfferID: ev.OfferID,
		ItemID:  ev.TargetItemID,
		Text:    "You received a new swap offer on one of your listings.",
	})
}

func (s *Service) handleOfferResolved(data []byte) {
	var ev messaging.OfferEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[notify] bad offer event: %v", err)
		return
	}

	// The offerer learns the outcome; the target owner acted and needs no
	// notification.
	n := Notification{OfferID: ev.OfferID, ItemID: ev.TargetItemID}
	switch ev.Status {
	case "accepted":
		n.Kind = KindOfferAccepted
		n.Text = "Your swap offer was accepted. Both items are now marked as swapped."
	case "rejected":
		n.Kind = KindOfferRejected
		n.Text = "Your swap offer was declined."
	default:
		return
	}

	s.deliver(ev.OffererID, n)
}

func (s *Service) handleMatchFound(userID string, data []byte) {
	var ev messaging.MatchFoundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[notify] bad match event: %v", err)
		return
	}

	s.deliver(userID, Notification{
		Kind:   KindMatchFound,
		ItemID: ev.ItemID,
		Text:   fmt.Sprintf("New potential swap for your listing: %q.", ev.MatchedTitle),
	})
}
