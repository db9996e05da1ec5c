package container

import (
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/geo"
	"github.com/serroba/shortlink/internal/useragent"
	"go.uber.org/zap"
)

// GeoDatabase is the optional MaxMind reader. Lookup is nil when no database is configured.
type GeoDatabase struct {
	Lookup geo.Lookup

	db *geo.MaxMind
}

func (g *GeoDatabase) Shutdown() error {
	if g.db == nil {
		return nil
	}

	return g.db.Shutdown()
}

// AnalyticsPackage provides the click recorder and the statistics aggregator.
func AnalyticsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*GeoDatabase, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.GeoIPPath == "" {
			logger.Info("no geoip database configured, countries will be recorded as Unknown")

			return &GeoDatabase{}, nil
		}

		db, err := geo.OpenMaxMind(opts.GeoIPPath)
		if err != nil {
			return nil, err
		}

		return &GeoDatabase{Lookup: geo.WithTimeout(db, opts.geoTimeout()), db: db}, nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Recorder, error) {
		storage := do.MustInvoke[*Storage](i)
		geoDB := do.MustInvoke[*GeoDatabase](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return analytics.NewRecorder(
			storage.Clicks,
			storage.Counter,
			geoDB.Lookup,
			useragent.NewParser(),
			logger.Named("recorder"),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Aggregator, error) {
		storage := do.MustInvoke[*Storage](i)

		return analytics.NewAggregator(storage.Clicks), nil
	})
}
