package geo_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls atomic.Int32
	loc   geo.Location
	err   error
	delay time.Duration
}

func (c *countingLookup) Lookup(ctx context.Context, _ net.IP) (geo.Location, error) {
	c.calls.Add(1)

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return geo.Location{}, ctx.Err()
		}
	}

	return c.loc, c.err
}

func TestResolve(t *testing.T) {
	t.Run("skips lookup for non-routable addresses", func(t *testing.T) {
		for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "169.254.1.1"} {
			lookup := &countingLookup{loc: geo.Location{Country: "Nowhere"}}

			loc := geo.Resolve(context.Background(), lookup, ip)

			assert.Equal(t, geo.UnknownLocation, loc, "ip %q", ip)
			assert.Zero(t, lookup.calls.Load(), "ip %q should not be looked up", ip)
		}
	})

	t.Run("returns the lookup result for public addresses", func(t *testing.T) {
		lookup := &countingLookup{loc: geo.Location{Country: "Germany", City: "Berlin"}}

		loc := geo.Resolve(context.Background(), lookup, " 8.8.8.8 ")

		assert.Equal(t, geo.Location{Country: "Germany", City: "Berlin"}, loc)
		assert.Equal(t, int32(1), lookup.calls.Load())
	})

	t.Run("fills blank fields with Unknown", func(t *testing.T) {
		lookup := &countingLookup{loc: geo.Location{Country: "Brazil"}}

		loc := geo.Resolve(context.Background(), lookup, "8.8.4.4")

		assert.Equal(t, "Brazil", loc.Country)
		assert.Equal(t, geo.Unknown, loc.City)
	})

	t.Run("lookup error yields Unknown", func(t *testing.T) {
		lookup := &countingLookup{err: errors.New("database closed")}

		assert.Equal(t, geo.UnknownLocation, geo.Resolve(context.Background(), lookup, "1.1.1.1"))
	})

	t.Run("nil lookup yields Unknown", func(t *testing.T) {
		assert.Equal(t, geo.UnknownLocation, geo.Resolve(context.Background(), nil, "1.1.1.1"))
	})
}

func TestWithTimeout(t *testing.T) {
	t.Run("returns ErrTimeout for slow lookups", func(t *testing.T) {
		slow := &countingLookup{loc: geo.Location{Country: "Japan"}, delay: time.Second}
		lookup := geo.WithTimeout(slow, 20*time.Millisecond)

		start := time.Now()
		_, err := lookup.Lookup(context.Background(), net.ParseIP("8.8.8.8"))

		require.ErrorIs(t, err, geo.ErrTimeout)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("passes fast lookups through", func(t *testing.T) {
		fast := &countingLookup{loc: geo.Location{Country: "Japan", City: "Tokyo"}}
		lookup := geo.WithTimeout(fast, time.Second)

		loc, err := lookup.Lookup(context.Background(), net.ParseIP("8.8.8.8"))

		require.NoError(t, err)
		assert.Equal(t, "Tokyo", loc.City)
	})

	t.Run("zero timeout returns the lookup unchanged", func(t *testing.T) {
		fast := &countingLookup{}

		assert.Same(t, geo.Lookup(fast), geo.WithTimeout(fast, 0))
	})

	t.Run("timed out lookup resolves to Unknown", func(t *testing.T) {
		slow := &countingLookup{loc: geo.Location{Country: "Japan"}, delay: time.Second}

		loc := geo.Resolve(context.Background(), geo.WithTimeout(slow, 10*time.Millisecond), "8.8.8.8")

		assert.Equal(t, geo.UnknownLocation, loc)
	})
}

func TestOpenMaxMind(t *testing.T) {
	_, err := geo.OpenMaxMind("testdata/does-not-exist.mmdb")

	assert.Error(t, err)
}
