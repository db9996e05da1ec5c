package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var aggNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *store.MemoryStore, at time.Time, country string, device analytics.DeviceType, browser string) {
	t.Helper()

	require.NoError(t, s.AppendClick(context.Background(), &analytics.ClickEvent{
		ID:         uuid.NewString(),
		LinkID:     "link-1",
		Timestamp:  at,
		Country:    country,
		DeviceType: device,
		Browser:    browser,
	}))
}

func TestCalendarBoundaries(t *testing.T) {
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), analytics.StartOfDay(aggNow))
	assert.Equal(t, time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC), analytics.StartOfWeek(aggNow))
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), analytics.StartOfMonth(aggNow))

	sunday := time.Date(2026, 4, 19, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC), analytics.StartOfWeek(sunday))

	offset := time.FixedZone("UTC-8", -8*3600)
	lateEvening := time.Date(2026, 4, 14, 20, 0, 0, 0, offset)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), analytics.StartOfDay(lateEvening))
}

func TestAggregator_Counts(t *testing.T) {
	s := newMemoryWithLink(t)
	seed(t, s, aggNow.Add(-time.Hour), "Germany", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.AddDate(0, 0, -1), "Germany", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.AddDate(0, 0, -10), "France", analytics.DeviceMobile, "Safari")
	seed(t, s, aggNow.AddDate(0, -2, 0), "Spain", analytics.DeviceTablet, "Firefox")

	agg := analytics.NewAggregatorAt(s, func() time.Time { return aggNow })
	ctx := context.Background()

	total, err := agg.TotalClicks(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	today, err := agg.ClicksToday(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), today)

	week, err := agg.ClicksThisWeek(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), week)

	month, err := agg.ClicksThisMonth(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), month)

	window, err := agg.ClicksInWindow(ctx, "link-1", aggNow.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(3), window)
}

func TestAggregator_ClicksByDay(t *testing.T) {
	s := newMemoryWithLink(t)
	seed(t, s, aggNow, "Germany", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.Add(-time.Minute), "Germany", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.AddDate(0, 0, -2), "Germany", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.AddDate(0, 0, -9), "Germany", analytics.DeviceDesktop, "Chrome")

	agg := analytics.NewAggregatorAt(s, func() time.Time { return aggNow })

	t.Run("zero-filled, oldest first", func(t *testing.T) {
		daily, err := agg.ClicksByDay(context.Background(), "link-1", 7)

		require.NoError(t, err)
		require.Len(t, daily, 7)
		assert.Equal(t, "2026-04-09", daily[0].Date)
		assert.Equal(t, "2026-04-15", daily[6].Date)

		counts := make([]int64, 0, len(daily))
		for _, d := range daily {
			counts = append(counts, d.Count)
		}

		assert.Equal(t, []int64{0, 0, 0, 0, 1, 0, 2}, counts)
	})

	t.Run("non-positive days uses the default", func(t *testing.T) {
		daily, err := agg.ClicksByDay(context.Background(), "link-1", 0)

		require.NoError(t, err)
		assert.Len(t, daily, analytics.DefaultDays)
	})

	t.Run("single day is today", func(t *testing.T) {
		daily, err := agg.ClicksByDay(context.Background(), "link-1", 1)

		require.NoError(t, err)
		assert.Equal(t, []analytics.DailyCount{{Date: "2026-04-15", Count: 2}}, daily)
	})
}

func TestAggregator_Breakdowns(t *testing.T) {
	s := newMemoryWithLink(t)
	base := aggNow.Add(-time.Hour)

	// US 2, DE 2, FR 1, plus excluded placeholders. DE is seen before US.
	for i, country := range []string{"DE", "US", "Unknown", "DE", "", "FR", "US", "unknown"} {
		device := analytics.DeviceDesktop
		if i%2 == 0 {
			device = analytics.DeviceMobile
		}

		seed(t, s, base.Add(time.Duration(i)*time.Second), country, device, "Chrome")
	}

	agg := analytics.NewAggregatorAt(s, func() time.Time { return aggNow })
	ctx := context.Background()

	t.Run("country excludes blanks and Unknown, ties by first seen", func(t *testing.T) {
		buckets, err := agg.BreakdownByCountry(ctx, "link-1")

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{
			{Key: "DE", Count: 2},
			{Key: "US", Count: 2},
			{Key: "FR", Count: 1},
		}, buckets)
	})

	t.Run("device", func(t *testing.T) {
		buckets, err := agg.BreakdownByDevice(ctx, "link-1")

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{
			{Key: "Mobile", Count: 4},
			{Key: "Desktop", Count: 4},
		}, buckets)
	})

	t.Run("browser", func(t *testing.T) {
		buckets, err := agg.BreakdownByBrowser(ctx, "link-1")

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{{Key: "Chrome", Count: 8}}, buckets)
	})

	t.Run("no clicks gives an empty breakdown", func(t *testing.T) {
		buckets, err := agg.BreakdownByCountry(ctx, "other-link")

		require.NoError(t, err)
		assert.Empty(t, buckets)
	})
}

// aggregateOnlyStore refuses to list raw clicks so stats must come from grouped queries.
type aggregateOnlyStore struct {
	*store.MemoryStore
}

func (aggregateOnlyStore) ListClicks(context.Context, string, time.Time) ([]*analytics.ClickEvent, error) {
	return nil, errors.New("click history must not be listed")
}

func TestAggregator_Summary(t *testing.T) {
	s := newMemoryWithLink(t)
	seed(t, s, aggNow.Add(-time.Hour), "Japan", analytics.DeviceMobile, "Safari")
	seed(t, s, aggNow.AddDate(0, 0, -2), "Japan", analytics.DeviceDesktop, "Chrome")
	seed(t, s, aggNow.AddDate(0, -1, 0), "Kenya", analytics.DeviceDesktop, "Chrome")

	agg := analytics.NewAggregatorAt(s, func() time.Time { return aggNow })

	summary, err := agg.Summary(context.Background(), "link-1", 5)

	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(1), summary.Today)
	assert.Equal(t, int64(2), summary.ThisWeek)
	assert.Equal(t, int64(2), summary.ThisMonth)
	assert.Len(t, summary.Daily, 5)
	assert.Equal(t, int64(1), summary.Daily[2].Count)
	assert.Equal(t, []analytics.Bucket{{Key: "Japan", Count: 2}, {Key: "Kenya", Count: 1}}, summary.Countries)
	assert.Equal(t, "Desktop", summary.Devices[0].Key)
	assert.Equal(t, "Chrome", summary.Browsers[0].Key)
}

func TestAggregator_SummaryUsesAggregates(t *testing.T) {
	s := newMemoryWithLink(t)
	seed(t, s, aggNow.Add(-time.Hour), "Japan", analytics.DeviceMobile, "Safari")
	seed(t, s, aggNow.AddDate(0, 0, -1), "Kenya", analytics.DeviceDesktop, "Chrome")

	agg := analytics.NewAggregatorAt(aggregateOnlyStore{s}, func() time.Time { return aggNow })

	summary, err := agg.Summary(context.Background(), "link-1", 3)

	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Today)
	assert.Equal(t, []analytics.DailyCount{
		{Date: "2026-04-13", Count: 0},
		{Date: "2026-04-14", Count: 1},
		{Date: "2026-04-15", Count: 1},
	}, summary.Daily)
	assert.Equal(t, []analytics.Bucket{{Key: "Kenya", Count: 1}, {Key: "Japan", Count: 1}}, summary.Countries)
	assert.Equal(t, []analytics.Bucket{{Key: "Desktop", Count: 1}, {Key: "Mobile", Count: 1}}, summary.Devices)
}
