// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

const (
	// DefaultSchedule runs the sweep once a minute.
	DefaultSchedule = "@every 1m"

	// DefaultBatchSize caps the links refreshed per run.
	DefaultBatchSize = 100
)

// MissingQRLister finds links whose QR image was never stored.
type MissingQRLister interface {
	ListMissingQR(ctx context.Context, limit int) ([]*shortener.Link, error)
}

// QRRefresher renders and stores the QR image of one link.
type QRRefresher interface {
	RefreshQR(ctx context.Context, link *shortener.Link)
}

// QRSweep retries QR generation for links that were left without an asset, for example
// after the object store was briefly unavailable.
type QRSweep struct {
	links     MissingQRLister
	refresher QRRefresher
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger

	cron    *cron.Cron
	running sync.Mutex
}

func NewQRSweep(links MissingQRLister, refresher QRRefresher, batchSize int, logger *zap.Logger) *QRSweep {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &QRSweep{
		links:     links,
		refresher: refresher,
		batchSize: batchSize,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the sweep. schedule uses the robfig/cron syntax, e.g. "@every 5m" or
// "0 */10 * * * *".
func (s *QRSweep) Start(schedule string) error {
	c := cron.New()

	if err := c.AddFunc(schedule, s.tick); err != nil {
		return fmt.Errorf("schedule qr sweep %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c

	s.logger.Info("qr sweep scheduled", zap.String("schedule", schedule))

	return nil
}

// Shutdown stops future runs. A run in progress is allowed to finish.
func (s *QRSweep) Shutdown() error {
	if s.cron != nil {
		s.cron.Stop()
	}

	s.running.Lock()
	defer s.running.Unlock()

	return nil
}

func (s *QRSweep) tick() {
	// Skip overlapping runs.
	if !s.running.TryLock() {
		s.logger.Debug("qr sweep still running, skipping tick")

		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("qr sweep failed", zap.Error(err))
	}
}

// RunOnce refreshes one batch and returns how many links were attempted.
func (s *QRSweep) RunOnce(ctx context.Context) (int, error) {
	links, err := s.links.ListMissingQR(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list links missing qr: %w", err)
	}

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		s.refresher.RefreshQR(ctx, link)
	}

	if len(links) > 0 {
		s.logger.Info("qr sweep finished", zap.Int("links", len(links)))
	}

	return len(links), nil
}
