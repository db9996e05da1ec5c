package messaging

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber buffer of the in-process transport.
const DefaultBuffer = 1024

// Transport pairs the publisher and subscriber sides of one broker.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// NewGoChannelTransport builds an in-process transport. Publisher and
// subscriber are the same channel, so consumers must run in this process.
func NewGoChannelTransport(buffer int64, logger *zap.Logger) *Transport {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: buffer,
	}, NewZapLogger(logger))

	return &Transport{Publisher: pubSub, Subscriber: pubSub}
}

// NewRedisStreamTransport builds a transport on Redis streams. Subscribers
// share consumerGroup, so each event is handled by one consumer process.
func NewRedisStreamTransport(client redis.UniversalClient, consumerGroup string, logger *zap.Logger) (*Transport, error) {
	wmLogger := NewZapLogger(logger)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     client,
		Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("redis stream publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: consumerGroup,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()

		return nil, fmt.Errorf("redis stream subscriber: %w", err)
	}

	return &Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
