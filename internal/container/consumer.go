package container

import (
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

// ConsumerGroupPackage provides the consumers that turn visits into click events.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		transport := do.MustInvoke[*messaging.Transport](i)
		recorder := do.MustInvoke[*analytics.Recorder](i)
		logger := do.MustInvoke[*zap.Logger](i)

		group := messaging.NewConsumerGroup(transport.Subscriber, logger)
		group.Add(messaging.NewConsumer[analytics.VisitEvent](
			transport.Subscriber,
			analytics.TopicVisits,
			recorder.HandleVisit,
			logger.Named("visits"),
		))

		return group, nil
	})
}
