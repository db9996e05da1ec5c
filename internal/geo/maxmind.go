package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMind looks addresses up in a local GeoIP2 or GeoLite2 City database.
type MaxMind struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}

	return &MaxMind{reader: reader}, nil
}

func (m *MaxMind) Lookup(_ context.Context, ip net.IP) (Location, error) {
	record, err := m.reader.City(ip)
	if err != nil {
		return Location{}, fmt.Errorf("geoip city lookup: %w", err)
	}

	return Location{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}, nil
}

// Shutdown releases the memory-mapped database.
func (m *MaxMind) Shutdown() error {
	return m.reader.Close()
}
