package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/metrics"
	"go.uber.org/zap"
)

// MetadataKey is the message metadata entry holding the event's partition key.
const MetadataKey = "key"

// Publish is a function that publishes a typed event.
type Publish[T any] func(event *T) error

// PublishOption configures a publish function.
type PublishOption[T any] func(*publishConfig[T])

type publishConfig[T any] struct {
	key func(*T) string
}

// WithKey stamps every message with key(event) so consumers and stream tooling can tell
// which entity an event belongs to without decoding the payload.
func WithKey[T any](key func(*T) string) PublishOption[T] {
	return func(c *publishConfig[T]) {
		c.key = key
	}
}

// NewPublishFunc creates a typed publish function for a specific topic. Events are JSON
// encoded.
func NewPublishFunc[T any](publisher message.Publisher, topic string, opts ...PublishOption[T]) Publish[T] {
	cfg := &publishConfig[T]{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			metrics.EventsPublished.WithLabelValues(topic, "failed").Inc()

			return fmt.Errorf("encode %s event: %w", topic, err)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		if cfg.key != nil {
			msg.Metadata.Set(MetadataKey, cfg.key(event))
		}

		if err := publisher.Publish(topic, msg); err != nil {
			metrics.EventsPublished.WithLabelValues(topic, "failed").Inc()

			return fmt.Errorf("publish to %s: %w", topic, err)
		}

		metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()

		return nil
	}
}

// PublisherGroup owns the publisher lifecycle. Shutdown is safe to call more than once,
// which matters when the in-process transport shares one channel with the consumers.
type PublisherGroup struct {
	publisher message.Publisher
	logger    *zap.Logger
	once      sync.Once
	err       error
}

func NewPublisherGroup(publisher message.Publisher, logger *zap.Logger) *PublisherGroup {
	return &PublisherGroup{publisher: publisher, logger: logger}
}

// Publisher returns the underlying message publisher for creating typed publish functions.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher once.
func (g *PublisherGroup) Shutdown() error {
	g.once.Do(func() {
		g.logger.Info("closing publisher")
		g.err = g.publisher.Close()
	})

	return g.err
}
