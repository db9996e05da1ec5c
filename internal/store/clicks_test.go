package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertClickAggregates seeds linkID with clicks over two UTC days and checks the grouped
// queries every analytics.Store must answer.
func assertClickAggregates(t *testing.T, s analytics.Store, linkID string) {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)

	// DE is seen before US; both end with two clicks.
	countries := []string{"DE", "US", "Unknown", "DE", "", "FR", "US", "unknown"}
	for i, country := range countries {
		device := analytics.DeviceDesktop
		if i%2 == 0 {
			device = analytics.DeviceMobile
		}

		require.NoError(t, s.AppendClick(ctx, &analytics.ClickEvent{
			ID:         fmt.Sprintf("%s-click-%d", linkID, i),
			LinkID:     linkID,
			Timestamp:  base.Add(time.Duration(i) * 20 * time.Minute),
			Country:    country,
			DeviceType: device,
			Browser:    "Firefox",
		}))
	}

	t.Run("groups by country", func(t *testing.T) {
		buckets, err := s.GroupClicks(ctx, linkID, analytics.DimensionCountry)

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{
			{Key: "DE", Count: 2},
			{Key: "US", Count: 2},
			{Key: "FR", Count: 1},
		}, buckets)
	})

	t.Run("groups by device", func(t *testing.T) {
		buckets, err := s.GroupClicks(ctx, linkID, analytics.DimensionDevice)

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{
			{Key: "Mobile", Count: 4},
			{Key: "Desktop", Count: 4},
		}, buckets)
	})

	t.Run("groups by browser", func(t *testing.T) {
		buckets, err := s.GroupClicks(ctx, linkID, analytics.DimensionBrowser)

		require.NoError(t, err)
		assert.Equal(t, []analytics.Bucket{{Key: "Firefox", Count: 8}}, buckets)
	})

	t.Run("counts per utc date", func(t *testing.T) {
		days, err := s.DailyClicks(ctx, linkID, time.Time{})

		require.NoError(t, err)
		assert.Equal(t, []analytics.DailyCount{
			{Date: "2026-05-01", Count: 3},
			{Date: "2026-05-02", Count: 5},
		}, days)
	})

	t.Run("daily counts respect the lower bound", func(t *testing.T) {
		days, err := s.DailyClicks(ctx, linkID, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, []analytics.DailyCount{{Date: "2026-05-02", Count: 5}}, days)
	})
}
