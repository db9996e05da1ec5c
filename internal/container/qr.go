package container

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/qr"
	"go.uber.org/zap"
)

// QRPackage provides the QR manager over the configured image store.
func QRPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*qr.Manager, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if _, err := qr.ParseHexColor(opts.QRColor); err != nil {
			return nil, fmt.Errorf("qr color: %w", err)
		}

		assets, err := openAssets(opts)
		if err != nil {
			return nil, err
		}

		return qr.NewManager(
			qr.NewPNGRenderer(opts.QRSize),
			assets,
			opts.PublicBaseURL(),
			opts.QRColor,
			opts.qrTimeout(),
			logger.Named("qr"),
		), nil
	})
}

func openAssets(opts *Options) (qr.AssetStore, error) {
	switch opts.QRStore {
	case "", "memory":
		return qr.NewMemoryAssets(), nil
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return qr.NewMinioAssets(ctx, qr.MinioConfig{
			Endpoint:  opts.MinioEndpoint,
			AccessKey: opts.MinioAccessKey,
			SecretKey: opts.MinioSecretKey,
			Bucket:    opts.MinioBucket,
			UseSSL:    opts.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown qr store %q", opts.QRStore)
	}
}
