// Package rubicon implements the Rubicon Fastlane bidder adapter. It compiles
// slot requests into Fastlane wire requests and normalizes the replies.
package rubicon

import (
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

const (
	bidderCode = "rubicon"

	// Version is reported upstream in the integration tag
	Version = "1.0.0"

	defaultIntegration = "tne_fastlane_v" + Version
)

var (
	_ adapters.Adapter    = (*Adapter)(nil)
	_ adapters.UserSyncer = (*Adapter)(nil)
)

// Adapter implements the Fastlane bidder
type Adapter struct {
	endpoint      string
	videoEndpoint string
	syncURL       string
	integration   string

	store    config.Store
	identity IdentityProvider

	rand func() float64
	now  func() time.Time
	log  *zerolog.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithVideoEndpoint overrides the video endpoint
func WithVideoEndpoint(endpoint string) Option {
	return func(a *Adapter) {
		if endpoint != "" {
			a.videoEndpoint = endpoint
		}
	}
}

// WithSyncURL overrides the user-sync iframe URL
func WithSyncURL(syncURL string) Option {
	return func(a *Adapter) {
		if syncURL != "" {
			a.syncURL = syncURL
		}
	}
}

// WithStore sets the settings store consulted for pageUrl, netRevenue,
// singleRequest and the identity override
func WithStore(store config.Store) Option {
	return func(a *Adapter) { a.store = store }
}

// WithIdentityProvider sets the identity collaborator
func WithIdentityProvider(p IdentityProvider) Option {
	return func(a *Adapter) { a.identity = p }
}

// WithIntegration overrides the integration tag
func WithIntegration(tag string) Option {
	return func(a *Adapter) {
		if tag != "" {
			a.integration = tag
		}
	}
}

// WithRand sets the source of the anti-cache token
func WithRand(fn func() float64) Option {
	return func(a *Adapter) { a.rand = fn }
}

// WithClock sets the clock used for the video timeout budget
func WithClock(fn func() time.Time) Option {
	return func(a *Adapter) { a.now = fn }
}

// New creates a new Fastlane adapter
func New(endpoint string, opts ...Option) *Adapter {
	if endpoint == "" {
		endpoint = config.FastlaneEndpoint
	}
	a := &Adapter{
		endpoint:      endpoint,
		videoEndpoint: config.VideoEndpoint,
		syncURL:       config.SyncEndpoint,
		integration:   defaultIntegration,
		store:         config.Settings{},
		rand:          rand.Float64,
		now:           time.Now,
		log:           logger.Bidder(bidderCode),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Code returns the bidder code
func (a *Adapter) Code() string {
	return bidderCode
}

// Aliases returns the other codes this adapter answers to
func (a *Adapter) Aliases() []string {
	return []string{"rubiconLite"}
}

// MakeRequests compiles the bidder request. Video slots get one POST each
// and come first. Standard slots get one GET each, or one GET per site when
// single request mode is on. Slot errors are reported and never stop the
// remaining slots.
func (a *Adapter) MakeRequests(request *slots.BidderRequest) ([]*adapters.RequestData, []error) {
	if request == nil {
		return nil, nil
	}

	var errs []error
	var video, standard []*slots.SlotRequest
	for _, slot := range request.Slots {
		if err := validate(slot); err != nil {
			a.log.Warn().Err(err).Str("auction_id", request.AuctionID).Msg("slot excluded")
			errs = append(errs, err)
			continue
		}
		if slot.IsVideo() {
			video = append(video, slot)
		} else {
			standard = append(standard, slot)
		}
	}

	requests := make([]*adapters.RequestData, 0, len(video)+len(standard))

	for _, slot := range video {
		rd, err := a.makeVideoRequest(slot, request)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		requests = append(requests, rd)
	}

	if !config.Bool(a.store, config.KeySingleRequest) {
		for _, slot := range standard {
			ps, err := a.SlotParams(slot, request)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			requests = append(requests, a.fastlaneRequest(ps, []*slots.SlotRequest{slot}, false))
		}
		return requests, errs
	}

	for _, group := range GroupBySite(standard) {
		group, err := capBatch(group)
		if err != nil {
			var overflow *BatchOverflowError
			if errors.As(err, &overflow) {
				a.log.Warn().
					Str("site_id", overflow.SiteID).
					Int("dropped", overflow.Dropped).
					Msg("single request slot limit exceeded")
			}
			errs = append(errs, err)
		}

		sets := make([]*ParameterSet, 0, len(group.Slots))
		kept := make([]*slots.SlotRequest, 0, len(group.Slots))
		for _, slot := range group.Slots {
			ps, err := a.SlotParams(slot, request)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			sets = append(sets, ps)
			kept = append(kept, slot)
		}
		if len(sets) == 0 {
			continue
		}

		requests = append(requests, a.fastlaneRequest(CombineSlotParams(sets), kept, true))
	}

	return requests, errs
}

// fastlaneRequest builds the GET request carrying ps for slotList
func (a *Adapter) fastlaneRequest(ps *ParameterSet, slotList []*slots.SlotRequest, batched bool) *adapters.RequestData {
	query := ps.Encode() +
		"slots=" + strconv.Itoa(len(slotList)) +
		"&rand=" + strconv.FormatFloat(a.rand(), 'f', -1, 64)

	headers := http.Header{}
	headers.Set("Accept", "application/json")

	return &adapters.RequestData{
		Method:  http.MethodGet,
		URI:     a.endpoint + "?" + query,
		Headers: headers,
		Slots:   slotList,
		Batched: batched,
	}
}
