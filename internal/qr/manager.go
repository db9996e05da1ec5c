// Package qr renders QR codes for short links and keeps the resulting assets.
package qr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortlink/internal/metrics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// ErrAssetNotFound is returned when an asset reference has nothing behind it.
var ErrAssetNotFound = errors.New("qr asset not found")

// Renderer encodes payload as a PNG QR code drawn in color.
type Renderer interface {
	Render(ctx context.Context, payload, color string) ([]byte, error)
}

// AssetStore persists rendered images and returns a reference to them.
type AssetStore interface {
	Put(ctx context.Context, key string, png []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Manager renders and stores QR assets for links.
type Manager struct {
	renderer Renderer
	assets   AssetStore
	baseURL  string
	color    string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewManager(
	renderer Renderer, assets AssetStore, baseURL, color string, timeout time.Duration, logger *zap.Logger,
) *Manager {
	return &Manager{
		renderer: renderer,
		assets:   assets,
		baseURL:  baseURL,
		color:    color,
		timeout:  timeout,
		logger:   logger,
	}
}

// EnsureQR renders the link's public short URL and stores the image. The returned
// reference is what callers persist on the link.
func (m *Manager) EnsureQR(ctx context.Context, link *shortener.Link) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	payload := link.ShortURL(m.baseURL)

	png, err := m.renderer.Render(ctx, payload, m.color)
	if err != nil {
		metrics.QRRenders.WithLabelValues("failed").Inc()

		return "", fmt.Errorf("render qr for %s: %w", link.ShortCode, err)
	}

	ref, err := m.assets.Put(ctx, AssetKey(link.ShortCode), png)
	if err != nil {
		metrics.QRRenders.WithLabelValues("failed").Inc()

		return "", fmt.Errorf("store qr for %s: %w", link.ShortCode, err)
	}

	metrics.QRRenders.WithLabelValues("ok").Inc()
	m.logger.Debug("qr rendered", zap.String("code", string(link.ShortCode)), zap.String("ref", ref))

	return ref, nil
}

// Asset loads a stored image by reference.
func (m *Manager) Asset(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, ErrAssetNotFound
	}

	return m.assets.Get(ctx, ref)
}

// AssetKey is the storage key of a link's QR image.
func AssetKey(code shortener.Code) string {
	return "qr/" + string(code) + ".png"
}
