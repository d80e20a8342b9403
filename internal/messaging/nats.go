// Package messaging provides a NATS client wrapper for pub/sub messaging
// across marketplace services. It handles connection lifecycle, subject-based
// subscriptions, and convenience methods for the item, offer, match and feed
// channels. All publishes are fire-and-forget: no domain operation waits on a
// subscriber.
package messaging

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns used across marketplace services.
const (
	SubjectItemApproved  = "item.approved"
	SubjectItemRejected  = "item.rejected"
	SubjectItemUpdated   = "item.updated" // edits and swap completions
	SubjectOfferCreated  = "offer.created"
	SubjectOfferResolved = "offer.resolved"
	SubjectMatchFound    = "match.found" // + .<user_id>
	SubjectFeed          = "feed.user"   // + .<user_id>
)

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "swaphub",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject (wildcards allowed)
// and stores the subscription internally for later cleanup.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// PublishItemApproved publishes an item approval event.
func (c *NATSClient) PublishItemApproved(data []byte) error {
	return c.Publish(SubjectItemApproved, data)
}

// PublishItemRejected publishes an item rejection event.
func (c *NATSClient) PublishItemRejected(data []byte) error {
	return c.Publish(SubjectItemRejected, data)
}

// PublishItemUpdated publishes an item update event (owner edit or swap
// completion; the payload carries the new status).
func (c *NATSClient) PublishItemUpdated(data []byte) error {
	return c.Publish(SubjectItemUpdated, data)
}

// PublishOfferCreated publishes a new-offer event.
func (c *NATSClient) PublishOfferCreated(data []byte) error {
	return c.Publish(SubjectOfferCreated, data)
}

// PublishOfferResolved publishes an offer accept/reject event.
func (c *NATSClient) PublishOfferResolved(data []byte) error {
	return c.Publish(SubjectOfferResolved, data)
}

// SubscribeItemApproved subscribes to item approval events.
func (c *NATSClient) SubscribeItemApproved(handler func(data []byte)) error {
	return c.Subscribe(SubjectItemApproved, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// SubscribeItemRejected subscribes to item rejection events.
func (c *NATSClient) SubscribeItemRejected(handler func(data []byte)) error {
	return c.Subscribe(SubjectItemRejected, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// SubscribeItemUpdated subscribes to item update events.
func (c *NATSClient) SubscribeItemUpdated(handler func(data []byte)) error {
	return c.Subscribe(SubjectItemUpdated, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// SubscribeOfferCreated subscribes to new-offer events.
func (c *NATSClient) SubscribeOfferCreated(handler func(data []byte)) error {
	return c.Subscribe(SubjectOfferCreated, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// SubscribeOfferResolved subscribes to offer resolution events.
func (c *NATSClient) SubscribeOfferResolved(handler func(data []byte)) error {
	return c.Subscribe(SubjectOfferResolved, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// PublishMatchFound publishes a match notification for a specific user.
func (c *NATSClient) PublishMatchFound(userID string, data []byte) error {
	return c.Publish(SubjectMatchFound+"."+userID, data)
}

// SubscribeMatchFoundAll subscribes to match notifications for every user
// (used by the notifier's fan-out). The user ID is carried in the subject,
// not the payload, so it is extracted and passed to the handler.
func (c *NATSClient) SubscribeMatchFoundAll(handler func(userID string, data []byte)) error {
	prefix := SubjectMatchFound + "."
	return c.Subscribe(SubjectMatchFound+".>", func(msg *nats.Msg) {
		handler(strings.TrimPrefix(msg.Subject, prefix), msg.Data)
	})
}

// PublishFeedEvent publishes a realtime feed event to a specific user.
func (c *NATSClient) PublishFeedEvent(userID string, data []byte) error {
	return c.Publish(SubjectFeed+"."+userID, data)
}

// SubscribeFeed subscribes to the feed.user.<userID> subject for one
// connected client. The subscription is keyed by connID so multiple
// connections from the same user on the same server don't overwrite each
// other.
func (c *NATSClient) SubscribeFeed(userID, connID string, handler func(data []byte)) error {
	subject := SubjectFeed + "." + userID
	key := "feedsub:" + connID
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[key] = sub
	c.mu.Unlock()
	return nil
}

// UnsubscribeFeed unsubscribes a connection's feed subscription.
func (c *NATSClient) UnsubscribeFeed(connID string) error {
	return c.unsubscribe("feedsub:" + connID)
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}

// unsubscribe removes and unsubscribes from a specific subject key.
func (c *NATSClient) unsubscribe(key string) error {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for %s", key)
	}
	delete(c.subs, key)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", key, err)
	}
	return nil
}
