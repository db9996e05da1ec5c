// Package redirect resolves short codes on the public hot path.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/metrics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Status is the outward result of a resolution.
type Status int

const (
	Found Status = iota
	// NotFoundOrInactive covers both unknown codes and deactivated links so callers cannot
	// tell them apart.
	NotFoundOrInactive
)

// Outcome is returned by Resolve. FinalURL and Link are set only when Status is Found.
type Outcome struct {
	Status   Status
	FinalURL string
	Link     *shortener.Link
}

// LinkFinder is the read side of the link registry used here.
type LinkFinder interface {
	FindByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error)
}

// Resolver is stateless apart from its collaborators and safe for concurrent use.
type Resolver struct {
	links   LinkFinder
	publish messaging.Publish[analytics.VisitEvent]
	logger  *zap.Logger
	now     func() time.Time
}

func NewResolver(links LinkFinder, publish messaging.Publish[analytics.VisitEvent], logger *zap.Logger) *Resolver {
	return &Resolver{
		links:   links,
		publish: publish,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve looks code up and, for an active link, dispatches a visit for recording
// before returning Found. Dispatch is fire-and-forget: a failed publish is logged and
// never changes the outcome. Only a storage failure is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, code shortener.Code, req analytics.RequestContext) (Outcome, error) {
	link, err := r.links.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			metrics.RedirectsTotal.WithLabelValues("not_found").Inc()

			return Outcome{Status: NotFoundOrInactive}, nil
		}

		metrics.RedirectsTotal.WithLabelValues("error").Inc()

		return Outcome{}, fmt.Errorf("resolve %s: %w", code, err)
	}

	if !link.Active {
		metrics.RedirectsTotal.WithLabelValues("not_found").Inc()

		return Outcome{Status: NotFoundOrInactive}, nil
	}

	event := &analytics.VisitEvent{
		LinkID:     link.ID,
		Code:       string(link.ShortCode),
		OccurredAt: r.now().UTC(),
		Request:    req,
	}

	if err := r.publish(event); err != nil {
		r.logger.Error("failed to dispatch visit",
			zap.String("code", string(code)),
			zap.String("linkId", link.ID),
			zap.Error(err),
		)
	}

	metrics.RedirectsTotal.WithLabelValues("found").Inc()

	return Outcome{Status: Found, FinalURL: link.FinalURL, Link: link}, nil
}
