package analytics

import (
	"context"
	"time"
)

// Dimension is a click attribute that breakdowns group by.
type Dimension string

const (
	DimensionCountry Dimension = "country"
	DimensionDevice  Dimension = "device"
	DimensionBrowser Dimension = "browser"
)

// Value returns the event's value for d.
func (d Dimension) Value(e *ClickEvent) string {
	switch d {
	case DimensionCountry:
		return e.Country
	case DimensionDevice:
		return string(e.DeviceType)
	case DimensionBrowser:
		return e.Browser
	default:
		return ""
	}
}

// Store persists click events.
type Store interface {
	AppendClick(ctx context.Context, event *ClickEvent) error
	// CountClicks counts the clicks of linkID at or after since. A zero since counts everything.
	CountClicks(ctx context.Context, linkID string, since time.Time) (int64, error)
	// ListClicks returns the clicks of linkID at or after since, oldest first.
	ListClicks(ctx context.Context, linkID string, since time.Time) ([]*ClickEvent, error)
	// GroupClicks counts the clicks of linkID per value of dim, most frequent first. Ties are
	// ordered by each value's earliest click. Empty and "Unknown" values are left out.
	GroupClicks(ctx context.Context, linkID string, dim Dimension) ([]Bucket, error)
	// DailyClicks counts the clicks of linkID at or after since per UTC date, oldest first.
	// Dates without clicks are absent.
	DailyClicks(ctx context.Context, linkID string, since time.Time) ([]DailyCount, error)
}

// ClickCounter bumps a link's denormalized click count.
type ClickCounter interface {
	IncrementClicks(ctx context.Context, id string) error
}
