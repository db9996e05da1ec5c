package messaging

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/metrics"
	"go.uber.org/zap"
)

// Handler processes a single event. Returning an error asks for redelivery.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer subscribes to a topic and processes messages with a typed handler.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start begins consuming messages from the topic.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage acks on success and nacks a handler error so the broker redelivers it.
// Events that can never succeed, because they do not decode or make the handler panic,
// are acked and dropped.
func (c *Consumer[T]) handleMessage(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(
		zap.String("topic", c.topic),
		zap.String("messageId", msg.UUID),
		zap.String("key", msg.Metadata.Get(MetadataKey)),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked, dropping event", zap.Any("panic", r))
			c.finish(msg, "dropped")
		}
	}()

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Error("failed to unmarshal event, dropping it", zap.Error(err))
		c.finish(msg, "dropped")

		return
	}

	if err := c.handler(ctx, &event); err != nil {
		logger.Warn("failed to handle event, requesting redelivery", zap.Error(err))
		c.finish(msg, "retry")

		return
	}

	c.finish(msg, "ok")
	logger.Debug("processed event")
}

func (c *Consumer[T]) finish(msg *message.Message, result string) {
	metrics.EventsConsumed.WithLabelValues(c.topic, result).Inc()

	if result == "retry" {
		msg.Nack()

		return
	}

	msg.Ack()
}

// Shutdown stops the consumer and waits for in-flight messages to complete.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
