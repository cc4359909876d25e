package endpoints

import (
	"net/http"
	"time"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/exchange"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
	"github.com/thenexusengine/tne_fastlane/internal/usersync"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// AuctionResponse is the JSON reply of /fastlane/auction
type AuctionResponse struct {
	AuctionID     string              `json:"auction_id"`
	Bids          []*slots.Bid        `json:"bids"`
	Errors        []string            `json:"errors,omitempty"`
	UserSyncs     []usersync.SyncInfo `json:"user_syncs,omitempty"`
	SyncedBidders []string            `json:"synced_bidders,omitempty"`
	DurationMS    int64               `json:"duration_ms"`
}

// AuctionHandler handles /fastlane/auction requests
type AuctionHandler struct {
	exchange *exchange.Exchange
}

// NewAuctionHandler creates a new auction handler
func NewAuctionHandler(ex *exchange.Exchange) *AuctionHandler {
	return &AuctionHandler{exchange: ex}
}

// ServeHTTP handles the auction request
func (h *AuctionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	req, err := decodeAuctionRequest(r)
	if err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Msg("rejected auction request")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bidderReq := req.toBidderRequest(time.Now())
	ctx := logger.WithAuctionID(r.Context(), bidderReq.AuctionID)

	result, err := h.exchange.RunAuction(ctx, bidderReq)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int("slots", len(bidderReq.Slots)).Msg("auction failed")
		writeError(w, "auction aborted: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	resp := AuctionResponse{
		AuctionID:  bidderReq.AuctionID,
		Bids:       result.Bids,
		Errors:     errorStrings(result.Errors),
		DurationMS: result.Duration.Milliseconds(),
	}
	if resp.Bids == nil {
		resp.Bids = []*slots.Bid{}
	}

	if req.Sync != nil {
		state := usersync.StateFromRequest(r)
		resp.UserSyncs, state = runUserSyncs(h.exchange.Adapter(), *req.Sync, state)
		resp.SyncedBidders = state.Bidders()
		setSyncCookie(w, r, state)
	}

	writeJSON(w, http.StatusOK, resp)
}

// runUserSyncs asks the adapter for sync directives when it supports them
func runUserSyncs(adapter adapters.Adapter, opts usersync.Options, state usersync.State) ([]usersync.SyncInfo, usersync.State) {
	syncer, ok := adapter.(adapters.UserSyncer)
	if !ok {
		return nil, state
	}
	return syncer.UserSyncs(opts, state)
}

// setSyncCookie persists state on the response
func setSyncCookie(w http.ResponseWriter, r *http.Request, state usersync.State) {
	cookie, err := state.ToHTTPCookie(cookieDomain(r))
	if err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Msg("failed to encode sync cookie")
		return
	}
	http.SetCookie(w, cookie)
}
