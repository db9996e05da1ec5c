package container

import (
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/scheduler"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// SchedulerPackage provides the QR retry sweep. The caller starts it.
func SchedulerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*scheduler.QRSweep, error) {
		storage := do.MustInvoke[*Storage](i)
		registry := do.MustInvoke[*shortener.Registry](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return scheduler.NewQRSweep(storage.Links, registry, scheduler.DefaultBatchSize, logger.Named("qr-sweep")), nil
	})
}
