// Package exchange runs Fastlane auctions: it compiles slot requests through
// the adapter, sends the wire requests and merges the replies.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// MetricsRecorder receives auction and wire request measurements
type MetricsRecorder interface {
	RecordAuction(status string, duration time.Duration, bidCount int)
	RecordBid(bidder, mediaType string, cpm float64)
	RecordBidderRequest(bidder, method string, latency time.Duration, hasError, timedOut bool)
	RecordSlotsDropped(bidder, reason string, count int)
}

// Auction outcome labels
const (
	StatusBids    = "bids"
	StatusNoBids  = "no_bids"
	StatusTimeout = "timeout"
)

// Config holds exchange configuration
type Config struct {
	DefaultTimeout time.Duration
	// MaxConcurrentRequests limits in-flight wire requests per auction (0 = unlimited)
	MaxConcurrentRequests int
	DefaultCurrency       string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout:        config.DefaultAuctionTimeout,
		MaxConcurrentRequests: config.DefaultMaxConcurrentRequests,
		DefaultCurrency:       config.DefaultCurrency,
	}
}

// validateConfig applies defaults for invalid values
func validateConfig(cfg *Config) *Config {
	defaults := DefaultConfig()

	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.MaxConcurrentRequests < 0 {
		cfg.MaxConcurrentRequests = defaults.MaxConcurrentRequests
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	return cfg
}

// Exchange orchestrates the auction process
type Exchange struct {
	adapter    adapters.Adapter
	httpClient adapters.HTTPClient
	config     *Config

	// mu protects metrics and httpClient for runtime swaps
	mu      sync.RWMutex
	metrics MetricsRecorder
}

// New creates a new exchange
func New(adapter adapters.Adapter, cfg *Config) *Exchange {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = validateConfig(cfg)

	return &Exchange{
		adapter:    adapter,
		httpClient: adapters.NewHTTPClient(cfg.DefaultTimeout),
		config:     cfg,
	}
}

// SetMetrics sets the metrics recorder
func (e *Exchange) SetMetrics(m MetricsRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// SetHTTPClient replaces the transport
func (e *Exchange) SetHTTPClient(c adapters.HTTPClient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.httpClient = c
}

// Adapter returns the bidder adapter
func (e *Exchange) Adapter() adapters.Adapter {
	return e.adapter
}

func (e *Exchange) collaborators() (adapters.HTTPClient, MetricsRecorder) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.httpClient, e.metrics
}

// AuctionResult holds the outcome of one auction
type AuctionResult struct {
	AuctionID string
	// Bids are sorted by descending cpm; ties keep wire order
	Bids     []*slots.Bid
	Errors   []error
	Requests []*RequestResult
	Duration time.Duration
}

// RequestResult is the outcome of one wire request
type RequestResult struct {
	Method   string
	URI      string
	BidIDs   []string
	Bids     []*slots.Bid
	Errors   []error
	Latency  time.Duration
	TimedOut bool
}

// Prepare fills auction defaults on a copy of req: start time and timeout
func (e *Exchange) Prepare(req *slots.BidderRequest) *slots.BidderRequest {
	r := *req
	if r.AuctionStart.IsZero() {
		r.AuctionStart = time.Now()
	}
	if r.Timeout <= 0 {
		r.Timeout = e.config.DefaultTimeout
	}
	return &r
}

// Compile builds the wire requests for req without sending them
func (e *Exchange) Compile(req *slots.BidderRequest) ([]*adapters.RequestData, []error) {
	if req == nil {
		return nil, nil
	}
	requests, errs := e.adapter.MakeRequests(e.Prepare(req))
	_, metrics := e.collaborators()
	e.recordDrops(metrics, errs)
	return requests, errs
}

// RunAuction compiles req, sends every wire request concurrently within the
// remaining auction time and merges the bids. Per-slot and per-request
// failures are collected in the result; only a context that is already
// done is returned as an error.
func (e *Exchange) RunAuction(ctx context.Context, req *slots.BidderRequest) (*AuctionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if req == nil {
		return &AuctionResult{}, nil
	}

	r := e.Prepare(req)
	result := &AuctionResult{AuctionID: r.AuctionID}
	log := logger.Auction(r.AuctionID)
	client, metrics := e.collaborators()
	bidder := e.adapter.Code()

	requests, errs := e.adapter.MakeRequests(r)
	result.Errors = append(result.Errors, errs...)
	e.recordDrops(metrics, errs)

	if len(requests) == 0 {
		result.Duration = time.Since(start)
		if metrics != nil {
			metrics.RecordAuction(StatusNoBids, result.Duration, 0)
		}
		log.Debug().Int("errors", len(errs)).Msg("no wire requests compiled")
		return result, nil
	}

	remaining := r.Timeout - time.Since(r.AuctionStart)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	results := make([]*RequestResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	if e.config.MaxConcurrentRequests > 0 {
		g.SetLimit(e.config.MaxConcurrentRequests)
	}

	for i, rd := range requests {
		i, rd := i, rd
		g.Go(func() error {
			results[i] = e.send(gctx, client, rd, remaining)
			return nil
		})
	}
	_ = g.Wait()

	timedOut := false
	for _, rr := range results {
		result.Requests = append(result.Requests, rr)
		result.Bids = append(result.Bids, rr.Bids...)
		result.Errors = append(result.Errors, rr.Errors...)
		timedOut = timedOut || rr.TimedOut

		if metrics != nil {
			metrics.RecordBidderRequest(bidder, rr.Method, rr.Latency, len(rr.Errors) > 0, rr.TimedOut)
			for _, bid := range rr.Bids {
				metrics.RecordBid(bidder, bid.MediaType, bid.CPM)
			}
		}
	}

	sort.SliceStable(result.Bids, func(i, j int) bool {
		return result.Bids[i].CPM > result.Bids[j].CPM
	})

	result.Duration = time.Since(start)
	status := StatusBids
	switch {
	case len(result.Bids) > 0:
	case timedOut:
		status = StatusTimeout
	default:
		status = StatusNoBids
	}
	if metrics != nil {
		metrics.RecordAuction(status, result.Duration, len(result.Bids))
	}

	log.Info().
		Int("requests", len(requests)).
		Int("bids", len(result.Bids)).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Str("status", status).
		Msg("auction complete")

	return result, nil
}

// send executes one wire request and interprets its reply
func (e *Exchange) send(ctx context.Context, client adapters.HTTPClient, rd *adapters.RequestData, timeout time.Duration) *RequestResult {
	start := time.Now()
	rr := &RequestResult{Method: rd.Method, URI: rd.URI}
	for _, s := range rd.Slots {
		rr.BidIDs = append(rr.BidIDs, s.BidID)
	}
	bidder := e.adapter.Code()

	resp, err := client.Do(ctx, rd, timeout)
	rr.Latency = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			rr.TimedOut = true
			rr.Errors = append(rr.Errors, adapters.NewTimeoutError(bidder, err))
		} else {
			rr.Errors = append(rr.Errors, adapters.NewConnectionError(bidder, err))
		}
		logger.Log.Debug().
			Str("bidder", bidder).
			Str("uri", rd.URI).
			Dur("elapsed", rr.Latency).
			Bool("timeout", rr.TimedOut).
			Err(err).
			Msg("bidder HTTP request failed")
		return rr
	}

	bidderResp, errs := e.adapter.MakeBids(rd, resp)
	rr.Errors = append(rr.Errors, errs...)
	if bidderResp == nil {
		return rr
	}

	currency := bidderResp.Currency
	if currency == "" {
		currency = config.DefaultCurrency
	}
	if currency != e.config.DefaultCurrency {
		rr.Errors = append(rr.Errors, &CurrencyMismatchError{Expected: e.config.DefaultCurrency, Got: currency})
		return rr
	}

	rr.Bids = bidderResp.Bids
	return rr
}

// recordDrops counts the slots kept off the wire, by reason
func (e *Exchange) recordDrops(metrics MetricsRecorder, errs []error) {
	if metrics == nil {
		return
	}
	for _, err := range errs {
		var drop adapters.SlotDropError
		if errors.As(err, &drop) {
			metrics.RecordSlotsDropped(e.adapter.Code(), drop.DropReason(), drop.DroppedSlots())
		}
	}
}

// CurrencyMismatchError rejects a reply priced in an unexpected currency
type CurrencyMismatchError struct {
	Expected string
	Got      string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: expected %s, got %s (bids rejected)", e.Expected, e.Got)
}
