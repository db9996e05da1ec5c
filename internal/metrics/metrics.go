// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RedirectsTotal is labelled found, not_found or error.
	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Short code resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// ClicksRecorded is labelled ok or failed.
	ClicksRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_clicks_recorded_total",
			Help: "Click events appended to the analytics store",
		},
		[]string{"result"},
	)

	ClickIncrementFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_click_increment_failures_total",
			Help: "Click count increments that failed after all retries",
		},
	)

	// QRRenders is labelled ok or failed.
	QRRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_qr_renders_total",
			Help: "QR asset renders by result",
		},
		[]string{"result"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// EventsPublished is labelled by topic and ok or failed.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"topic", "result"},
	)

	// EventsConsumed is labelled by topic and ok, retry or dropped.
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_events_consumed_total",
			Help: "Domain events taken off the broker by outcome",
		},
		[]string{"topic", "result"},
	)
)
