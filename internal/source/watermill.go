package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
)

// DefaultTopicPrefix is prepended to the seller id to form a feed topic.
const DefaultTopicPrefix = "catalog."

// Snapshotter returns a full listing for a seller.
type Snapshotter interface {
	Snapshot(ctx context.Context, sellerID string) ([]domain.Item, error)
}

// WatermillCatalog is a CatalogSource reading deltas from a watermill
// subscriber. Each message payload is a JSON encoded catalog.Delta on the
// topic "<prefix><sellerID>".
//
// Messages that cannot be decoded are logged and acked so that one bad
// payload does not wedge the feed.
type WatermillCatalog struct {
	sub    message.Subscriber
	seed   Snapshotter
	prefix string
}

// NewWatermillCatalog creates a catalog over sub. seed serves Snapshot and
// may be nil, in which case the listing starts empty and is built from the
// feed alone.
func NewWatermillCatalog(sub message.Subscriber, seed Snapshotter, topicPrefix string) *WatermillCatalog {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &WatermillCatalog{sub: sub, seed: seed, prefix: topicPrefix}
}

// Topic returns the topic carrying a seller's deltas.
func (c *WatermillCatalog) Topic(sellerID string) string {
	return c.prefix + sellerID
}

func (c *WatermillCatalog) Snapshot(ctx context.Context, sellerID string) ([]domain.Item, error) {
	if c.seed == nil {
		return []domain.Item{}, nil
	}
	return c.seed.Snapshot(ctx, sellerID)
}

func (c *WatermillCatalog) Subscribe(ctx context.Context, sellerID string) (<-chan catalog.Delta, error) {
	topic := c.Topic(sellerID)
	msgs, err := c.sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, domain.NetworkFailure("subscribe to catalog feed", err)
	}

	out := make(chan catalog.Delta)
	go func() {
		defer close(out)
		for msg := range msgs {
			d, err := DecodeDelta(msg.Payload)
			if err != nil {
				slog.Warn("dropping catalog message",
					"topic", topic,
					"message_uuid", msg.UUID,
					"error", err,
				)
				msg.Ack()
				continue
			}

			select {
			case out <- d:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// DecodeDelta parses a feed payload.
func DecodeDelta(payload []byte) (catalog.Delta, error) {
	var d catalog.Delta
	if err := json.Unmarshal(payload, &d); err != nil {
		return catalog.Delta{}, fmt.Errorf("decode delta: %w", err)
	}
	if !d.Mode.Valid() {
		return catalog.Delta{}, fmt.Errorf("decode delta: unknown mode %q", d.Mode)
	}
	if d.Item.ID == "" {
		return catalog.Delta{}, fmt.Errorf("decode delta: item id is required")
	}
	return d, nil
}

// PublishDelta sends d on the seller's topic.
func PublishDelta(pub message.Publisher, topicPrefix, sellerID string, d catalog.Delta) error {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := pub.Publish(topicPrefix+sellerID, msg); err != nil {
		return fmt.Errorf("publish delta %s: %w", d, err)
	}
	return nil
}
