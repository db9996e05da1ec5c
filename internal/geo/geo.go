// Package geo resolves client IP addresses to a best-effort country and city.
package geo

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Unknown is reported for any dimension that could not be resolved.
const Unknown = "Unknown"

// ErrTimeout is returned by a lookup wrapped with WithTimeout when it runs out of time.
var ErrTimeout = errors.New("geo lookup timed out")

// Location is the result of a lookup.
type Location struct {
	Country string
	City    string
}

// UnknownLocation is returned whenever a lookup is skipped or fails.
var UnknownLocation = Location{Country: Unknown, City: Unknown}

// Lookup maps a public IP to a location.
type Lookup interface {
	Lookup(ctx context.Context, ip net.IP) (Location, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, ip net.IP) (Location, error)

func (f LookupFunc) Lookup(ctx context.Context, ip net.IP) (Location, error) {
	return f(ctx, ip)
}

// Resolve looks up rawIP and never fails. Empty, unparsable, loopback, private and
// otherwise non-routable addresses resolve to UnknownLocation without calling lookup,
// and so does any lookup error. Blank fields in a successful result become Unknown.
func Resolve(ctx context.Context, lookup Lookup, rawIP string) Location {
	if lookup == nil {
		return UnknownLocation
	}

	ip := net.ParseIP(strings.TrimSpace(rawIP))
	if !Routable(ip) {
		return UnknownLocation
	}

	loc, err := lookup.Lookup(ctx, ip)
	if err != nil {
		return UnknownLocation
	}

	if loc.Country == "" {
		loc.Country = Unknown
	}

	if loc.City == "" {
		loc.City = Unknown
	}

	return loc
}

// Routable reports whether ip is worth a geolocation lookup.
func Routable(ip net.IP) bool {
	if ip == nil {
		return false
	}

	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsMulticast()
}

type timeoutLookup struct {
	next    Lookup
	timeout time.Duration
}

// WithTimeout bounds every call to next. A call that does not finish in time returns
// ErrTimeout; the abandoned call is left to finish in the background.
func WithTimeout(next Lookup, timeout time.Duration) Lookup {
	if timeout <= 0 {
		return next
	}

	return &timeoutLookup{next: next, timeout: timeout}
}

type lookupResult struct {
	loc Location
	err error
}

func (t *timeoutLookup) Lookup(ctx context.Context, ip net.IP) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)

	go func() {
		loc, err := t.next.Lookup(ctx, ip)
		done <- lookupResult{loc: loc, err: err}
	}()

	select {
	case res := <-done:
		return res.loc, res.err
	case <-ctx.Done():
		return Location{}, ErrTimeout
	}
}
