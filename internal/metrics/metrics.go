// Package metrics holds the Prometheus collectors shared by the carrier
// client, the services and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shipgate"

// CarrierRequestsTotal counts carrier round trips.
// Labels: carrier, operation ("rate", "track"), outcome ("success",
// "failure", "transport_error", "content_error").
var CarrierRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "carrier_requests_total",
		Help:      "Total number of carrier requests by outcome.",
	},
	[]string{"carrier", "operation", "outcome"},
)

var CarrierRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "carrier_request_duration_seconds",
		Help:      "Duration of carrier round trips including parsing.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"carrier", "operation"},
)

// CacheLookupsTotal counts cache reads. Labels: cache ("rates", "trackings",
// "shipments"), result ("hit", "miss", "error").
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cache lookups by result.",
	},
	[]string{"cache", "result"},
)

var PollerChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poller_checks_total",
		Help:      "Total number of shipment checks made by the poller.",
	},
	[]string{"result"},
)

var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "status"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)
