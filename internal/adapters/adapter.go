// Package adapters provides the bidder adapter framework
package adapters

import (
	"net/http"

	"github.com/thenexusengine/tne_fastlane/internal/slots"
	"github.com/thenexusengine/tne_fastlane/internal/usersync"
)

// Adapter compiles slot requests into wire requests and normalizes replies.
// Implementations must not block or perform I/O.
type Adapter interface {
	// Code returns the bidder code
	Code() string

	// MakeRequests builds the wire requests for one bidder request.
	// Slots that cannot be sent are reported in the error list and skipped.
	MakeRequests(request *slots.BidderRequest) ([]*RequestData, []error)

	// MakeBids parses one wire reply into normalized bids
	MakeBids(request *RequestData, response *ResponseData) (*BidderResponse, []error)
}

// UserSyncer is implemented by adapters that request user syncs
type UserSyncer interface {
	UserSyncs(opts usersync.Options, state usersync.State) ([]usersync.SyncInfo, usersync.State)
}

// RequestData is a compiled wire request
type RequestData struct {
	Method  string
	URI     string
	Body    []byte
	Headers http.Header

	// Slots are the originating slot requests in wire order. The reply is
	// correlated to them by position only.
	Slots []*slots.SlotRequest
	// Batched is true when Slots were combined into one request; the i-th
	// ad in the reply then belongs to Slots[i].
	Batched bool
}

// ResponseData represents an HTTP response from a bidder
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// BidderResponse contains parsed bids from a bidder
type BidderResponse struct {
	Bids     []*slots.Bid
	Currency string
}
