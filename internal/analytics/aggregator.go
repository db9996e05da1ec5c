package analytics

import (
	"context"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultDays is the daily histogram length when none is requested.
	DefaultDays = 7
	// MaxDays caps the daily histogram length.
	MaxDays = 366

	dateLayout = "2006-01-02"
)

// Bucket is one entry of a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DailyCount is the number of clicks on one UTC calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Summary is the full statistics view of one link.
type Summary struct {
	Total     int64        `json:"total"`
	Today     int64        `json:"today"`
	ThisWeek  int64        `json:"thisWeek"`
	ThisMonth int64        `json:"thisMonth"`
	Daily     []DailyCount `json:"daily"`
	Countries []Bucket     `json:"countries"`
	Devices   []Bucket     `json:"devices"`
	Browsers  []Bucket     `json:"browsers"`
}

// Aggregator answers read-only questions about recorded clicks. All calendar math is UTC.
type Aggregator struct {
	store Store
	now   func() time.Time
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// NewAggregatorAt creates an aggregator with a fixed clock.
func NewAggregatorAt(store Store, now func() time.Time) *Aggregator {
	return &Aggregator{store: store, now: now}
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns midnight UTC of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns midnight UTC of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()

	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func (a *Aggregator) TotalClicks(ctx context.Context, linkID string) (int64, error) {
	return a.store.CountClicks(ctx, linkID, time.Time{})
}

// ClicksInWindow counts clicks at or after since.
func (a *Aggregator) ClicksInWindow(ctx context.Context, linkID string, since time.Time) (int64, error) {
	return a.store.CountClicks(ctx, linkID, since)
}

func (a *Aggregator) ClicksToday(ctx context.Context, linkID string) (int64, error) {
	return a.ClicksInWindow(ctx, linkID, StartOfDay(a.now()))
}

func (a *Aggregator) ClicksThisWeek(ctx context.Context, linkID string) (int64, error) {
	return a.ClicksInWindow(ctx, linkID, StartOfWeek(a.now()))
}

func (a *Aggregator) ClicksThisMonth(ctx context.Context, linkID string) (int64, error) {
	return a.ClicksInWindow(ctx, linkID, StartOfMonth(a.now()))
}

// ClicksByDay returns one entry per UTC day for the trailing days days including today,
// oldest first. Days without clicks are present with a zero count.
func (a *Aggregator) ClicksByDay(ctx context.Context, linkID string, days int) ([]DailyCount, error) {
	days = clampDays(days)
	first := StartOfDay(a.now()).AddDate(0, 0, -(days - 1))

	counts, err := a.store.DailyClicks(ctx, linkID, first)
	if err != nil {
		return nil, err
	}

	return fillDays(counts, first, days), nil
}

func (a *Aggregator) BreakdownByCountry(ctx context.Context, linkID string) ([]Bucket, error) {
	return a.store.GroupClicks(ctx, linkID, DimensionCountry)
}

func (a *Aggregator) BreakdownByDevice(ctx context.Context, linkID string) ([]Bucket, error) {
	return a.store.GroupClicks(ctx, linkID, DimensionDevice)
}

func (a *Aggregator) BreakdownByBrowser(ctx context.Context, linkID string) ([]Bucket, error) {
	return a.store.GroupClicks(ctx, linkID, DimensionBrowser)
}

// Summary composes the counts, the daily histogram and the breakdowns. Each part is an
// aggregate query, so the link's click history is never loaded.
func (a *Aggregator) Summary(ctx context.Context, linkID string, days int) (*Summary, error) {
	now := a.now()
	out := &Summary{}

	counts := []struct {
		dst   *int64
		since time.Time
	}{
		{&out.Total, time.Time{}},
		{&out.Today, StartOfDay(now)},
		{&out.ThisWeek, StartOfWeek(now)},
		{&out.ThisMonth, StartOfMonth(now)},
	}

	for _, c := range counts {
		n, err := a.store.CountClicks(ctx, linkID, c.since)
		if err != nil {
			return nil, err
		}

		*c.dst = n
	}

	daily, err := a.ClicksByDay(ctx, linkID, days)
	if err != nil {
		return nil, err
	}

	out.Daily = daily

	breakdowns := []struct {
		dst *[]Bucket
		dim Dimension
	}{
		{&out.Countries, DimensionCountry},
		{&out.Devices, DimensionDevice},
		{&out.Browsers, DimensionBrowser},
	}

	for _, b := range breakdowns {
		buckets, err := a.store.GroupClicks(ctx, linkID, b.dim)
		if err != nil {
			return nil, err
		}

		*b.dst = buckets
	}

	return out, nil
}

// Breakdown counts events per key, most frequent first. Ties keep the order in which the
// keys first appear in events. Empty and "Unknown" keys are left out.
func Breakdown(events []*ClickEvent, key func(*ClickEvent) string) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)

	for _, e := range events {
		k := key(e)
		if k == "" || strings.EqualFold(k, Unknown) {
			continue
		}

		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Key: k})
		}

		buckets[i].Count++
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Count > buckets[j].Count })

	return buckets
}

// DailyCounts groups events by UTC date, oldest first, leaving out dates without events.
func DailyCounts(events []*ClickEvent) []DailyCount {
	index := make(map[string]int)
	out := make([]DailyCount, 0)

	for _, e := range events {
		date := e.Timestamp.UTC().Format(dateLayout)

		i, ok := index[date]
		if !ok {
			i = len(out)
			index[date] = i
			out = append(out, DailyCount{Date: date})
		}

		out[i].Count++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out
}

// fillDays spreads sparse per-date counts over days consecutive dates starting at first.
func fillDays(counts []DailyCount, first time.Time, days int) []DailyCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}

	out := make([]DailyCount, days)
	for i := range out {
		date := first.AddDate(0, 0, i).Format(dateLayout)
		out[i] = DailyCount{Date: date, Count: byDate[date]}
	}

	return out
}

func clampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	default:
		return days
	}
}
