package container

import (
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

// BrokerPackage provides the visit event transport and the publish side built on it.
func BrokerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.Transport, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch opts.Broker {
		case "", "gochannel":
			return messaging.NewGoChannelTransport(messaging.DefaultBuffer, logger), nil
		case "redis":
			client := do.MustInvoke[*RedisClient](i)

			return messaging.NewRedisStreamTransport(client.Client, opts.ConsumerGroup, logger)
		default:
			return nil, fmt.Errorf("unknown broker %q", opts.Broker)
		}
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		transport := do.MustInvoke[*messaging.Transport](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return messaging.NewPublisherGroup(transport.Publisher, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.VisitEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.VisitEvent](
			group.Publisher(),
			analytics.TopicVisits,
			messaging.WithKey(func(e *analytics.VisitEvent) string { return e.LinkID }),
		), nil
	})
}

// InProcessConsumers reports whether visits must be consumed by the serving process.
func (o *Options) InProcessConsumers() bool {
	return o.Broker == "" || o.Broker == "gochannel"
}
