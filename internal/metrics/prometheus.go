// Package metrics provides Prometheus metrics for the Fastlane service
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auction metrics
	AuctionsTotal   *prometheus.CounterVec
	AuctionDuration prometheus.Histogram
	BidsPerAuction  prometheus.Histogram
	BidsReceived    *prometheus.CounterVec
	BidCPM          *prometheus.HistogramVec
	SlotsDropped    *prometheus.CounterVec

	// Wire request metrics
	BidderRequests *prometheus.CounterVec
	BidderLatency  *prometheus.HistogramVec
	BidderErrors   *prometheus.CounterVec
	BidderTimeouts *prometheus.CounterVec

	// Settings metrics
	SettingsLoads *prometheus.CounterVec

	registry prometheus.Gatherer
}

// NewMetrics creates and registers all metrics on reg. A nil reg uses the
// default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "fastlane"
	}

	m := &Metrics{
		// Request metrics
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		// Auction metrics
		AuctionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auctions_total",
				Help:      "Total number of auctions",
			},
			[]string{"status"},
		),
		AuctionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "auction_duration_seconds",
				Help:      "Auction duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, .75, 1, 1.5, 2},
			},
		),
		BidsPerAuction: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bids_per_auction",
				Help:      "Number of bids returned per auction",
				Buckets:   []float64{0, 1, 2, 3, 5, 7, 10, 15, 20},
			},
		),
		BidsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bids_received_total",
				Help:      "Total number of bids received",
			},
			[]string{"bidder", "media_type"},
		),
		BidCPM: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bid_cpm",
				Help:      "Bid CPM distribution",
				Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"bidder", "media_type"},
		),
		SlotsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slots_dropped_total",
				Help:      "Slots left out of wire requests",
			},
			[]string{"bidder", "reason"},
		),

		// Wire request metrics
		BidderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bidder_requests_total",
				Help:      "Total wire requests sent to bidders",
			},
			[]string{"bidder", "method"},
		),
		BidderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bidder_latency_seconds",
				Help:      "Wire request latency in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, .75, 1, 1.5},
			},
			[]string{"bidder"},
		),
		BidderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bidder_errors_total",
				Help:      "Total wire request errors",
			},
			[]string{"bidder", "type"},
		),
		BidderTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bidder_timeouts_total",
				Help:      "Total wire request timeouts",
			},
			[]string{"bidder"},
		),

		// Settings metrics
		SettingsLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settings_loads_total",
				Help:      "Settings loads by source and outcome",
			},
			[]string{"source", "status"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	} else {
		m.registry = prometheus.DefaultGatherer
	}

	// Register all metrics
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.AuctionsTotal,
		m.AuctionDuration,
		m.BidsPerAuction,
		m.BidsReceived,
		m.BidCPM,
		m.SlotsDropped,
		m.BidderRequests,
		m.BidderLatency,
		m.BidderErrors,
		m.BidderTimeouts,
		m.SettingsLoads,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for the registry m was
// registered on
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns HTTP middleware that records request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)

		m.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		m.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordAuction records auction metrics
func (m *Metrics) RecordAuction(status string, duration time.Duration, bidCount int) {
	m.AuctionsTotal.WithLabelValues(status).Inc()
	m.AuctionDuration.Observe(duration.Seconds())
	m.BidsPerAuction.Observe(float64(bidCount))
}

// RecordBid records a bid received from a bidder
func (m *Metrics) RecordBid(bidder, mediaType string, cpm float64) {
	m.BidsReceived.WithLabelValues(bidder, mediaType).Inc()
	m.BidCPM.WithLabelValues(bidder, mediaType).Observe(cpm)
}

// RecordBidderRequest records one wire request
func (m *Metrics) RecordBidderRequest(bidder, method string, latency time.Duration, hasError, timedOut bool) {
	m.BidderRequests.WithLabelValues(bidder, method).Inc()
	m.BidderLatency.WithLabelValues(bidder).Observe(latency.Seconds())

	if hasError {
		m.BidderErrors.WithLabelValues(bidder, "error").Inc()
	}
	if timedOut {
		m.BidderTimeouts.WithLabelValues(bidder).Inc()
	}
}

// RecordSlotsDropped records slots excluded before sending
func (m *Metrics) RecordSlotsDropped(bidder, reason string, count int) {
	if count <= 0 {
		return
	}
	m.SlotsDropped.WithLabelValues(bidder, reason).Add(float64(count))
}

// RecordSettingsLoad records a settings load from source
func (m *Metrics) RecordSettingsLoad(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SettingsLoads.WithLabelValues(source, status).Inc()
}
