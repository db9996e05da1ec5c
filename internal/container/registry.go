package container

import (
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/qr"
	"github.com/serroba/shortlink/internal/redirect"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// RegistryPackage provides the link registry and the redirect resolver.
func RegistryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Registry, error) {
		opts := do.MustInvoke[*Options](i)
		storage := do.MustInvoke[*Storage](i)
		manager := do.MustInvoke[*qr.Manager](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.CodeLength < shortener.MinCodeLength || opts.CodeLength > shortener.MaxCodeLength {
			return nil, fmt.Errorf("code length %d out of range [%d, %d]",
				opts.CodeLength, shortener.MinCodeLength, shortener.MaxCodeLength)
		}

		source, err := shortener.NewAlphanumericSource(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		generator := shortener.NewGenerator(storage.Links, source)

		return shortener.NewRegistry(storage.Links, generator, manager, logger.Named("registry")), nil
	})

	do.Provide(i, func(i *do.Injector) (*redirect.Resolver, error) {
		registry := do.MustInvoke[*shortener.Registry](i)
		publish := do.MustInvoke[messaging.Publish[analytics.VisitEvent]](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return redirect.NewResolver(registry, publish, logger.Named("redirect")), nil
	})
}
