package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/geo"
	"github.com/serroba/shortlink/internal/metrics"
	"github.com/serroba/shortlink/internal/useragent"
	"go.uber.org/zap"
)

const (
	defaultIncrementAttempts = 3
	defaultIncrementBackoff  = 25 * time.Millisecond
)

// Recorder turns visits into ClickEvents. It never reports a failure to its caller.
type Recorder struct {
	store   Store
	counter ClickCounter
	geo     geo.Lookup
	parser  *useragent.Parser
	logger  *zap.Logger
	now     func() time.Time

	incrementAttempts uint
	incrementBackoff  time.Duration
}

// RecorderOption tweaks a Recorder.
type RecorderOption func(*Recorder)

// WithIncrementRetry sets how many times the click count bump is attempted and the linear
// backoff step between attempts.
func WithIncrementRetry(attempts uint, step time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.incrementAttempts = attempts
		r.incrementBackoff = step
	}
}

// WithClock overrides the time source used for Record.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder wires a recorder. lookup should already be bounded with geo.WithTimeout.
func NewRecorder(
	store Store,
	counter ClickCounter,
	lookup geo.Lookup,
	parser *useragent.Parser,
	logger *zap.Logger,
	opts ...RecorderOption,
) *Recorder {
	r := &Recorder{
		store:             store,
		counter:           counter,
		geo:               lookup,
		parser:            parser,
		logger:            logger,
		now:               time.Now,
		incrementAttempts: defaultIncrementAttempts,
		incrementBackoff:  defaultIncrementBackoff,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record appends one ClickEvent for linkID stamped with the current time.
func (r *Recorder) Record(ctx context.Context, linkID string, req RequestContext) {
	r.record(ctx, linkID, r.now(), req)
}

// HandleVisit is the messaging handler for TopicVisits. It records the click, then bumps
// the link's click count. It always returns nil so the message is acknowledged exactly once
// and a retry can never duplicate the click event.
func (r *Recorder) HandleVisit(ctx context.Context, event *VisitEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = r.now()
	}

	r.record(ctx, event.LinkID, at, event.Request)
	r.increment(ctx, event.LinkID)

	return nil
}

// Derive builds the ClickEvent for a visit without storing it.
func (r *Recorder) Derive(ctx context.Context, linkID string, at time.Time, req RequestContext) *ClickEvent {
	info := r.parser.Parse(req.UserAgent)
	loc := geo.Resolve(ctx, r.geo, req.IPAddress)

	device := DeviceDesktop

	switch {
	case info.Mobile:
		device = DeviceMobile
	case info.Tablet:
		device = DeviceTablet
	}

	return &ClickEvent{
		ID:         uuid.NewString(),
		LinkID:     linkID,
		Timestamp:  at.UTC(),
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Country:    loc.Country,
		City:       loc.City,
		DeviceType: device,
		Browser:    orUnknown(info.Browser),
		OS:         orUnknown(info.OS),
		Referrer:   req.Referrer,
		Extra: map[string]string{
			"ua_family":  info.Browser,
			"ua_version": info.BrowserVersion,
			"os_family":  info.OSFamily,
			"os_version": info.OSVersion,
		},
	}
}

func (r *Recorder) record(ctx context.Context, linkID string, at time.Time, req RequestContext) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.ClicksRecorded.WithLabelValues("failed").Inc()
			r.logger.Error("panic while recording click",
				zap.String("linkId", linkID),
				zap.Any("panic", rec),
			)
		}
	}()

	event := r.Derive(ctx, linkID, at, req)

	if err := r.store.AppendClick(ctx, event); err != nil {
		metrics.ClicksRecorded.WithLabelValues("failed").Inc()
		r.logger.Error("failed to record click",
			zap.String("linkId", linkID),
			zap.Error(err),
		)

		return
	}

	metrics.ClicksRecorded.WithLabelValues("ok").Inc()

	r.logger.Debug("click recorded",
		zap.String("linkId", linkID),
		zap.String("country", event.Country),
		zap.String("device", string(event.DeviceType)),
	)
}

func (r *Recorder) increment(ctx context.Context, linkID string) {
	err := retry.Retry(
		func(attempt uint) error {
			if err := r.counter.IncrementClicks(ctx, linkID); err != nil {
				return fmt.Errorf("attempt %d: %w", attempt, err)
			}

			return nil
		},
		strategy.Limit(r.incrementAttempts),
		strategy.Backoff(backoff.Linear(r.incrementBackoff)),
	)
	if err != nil {
		metrics.ClickIncrementFailures.Inc()
		r.logger.Error("failed to increment click count",
			zap.String("linkId", linkID),
			zap.Uint("attempts", r.incrementAttempts),
			zap.Error(err),
		)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}

	return s
}
