package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/thenexusengine/tne_fastlane/internal/exchange"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// CompiledRequest is one wire request as reported by /fastlane/compile
type CompiledRequest struct {
	Method  string          `json:"method"`
	URL     string          `json:"url"`
	Body    json.RawMessage `json:"body,omitempty"`
	BidIDs  []string        `json:"bid_ids"`
	Batched bool            `json:"batched"`
}

// CompileResponse is the JSON reply of /fastlane/compile
type CompileResponse struct {
	AuctionID string            `json:"auction_id"`
	Requests  []CompiledRequest `json:"requests"`
	Errors    []string          `json:"errors,omitempty"`
}

// CompileHandler returns the wire requests an auction would send without
// sending them
type CompileHandler struct {
	exchange *exchange.Exchange
}

// NewCompileHandler creates a new compile handler
func NewCompileHandler(ex *exchange.Exchange) *CompileHandler {
	return &CompileHandler{exchange: ex}
}

// ServeHTTP handles the compile request
func (h *CompileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	req, err := decodeAuctionRequest(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bidderReq := req.toBidderRequest(time.Now())
	requests, errs := h.exchange.Compile(bidderReq)

	resp := CompileResponse{
		AuctionID: bidderReq.AuctionID,
		Requests:  make([]CompiledRequest, 0, len(requests)),
		Errors:    errorStrings(errs),
	}
	for _, rd := range requests {
		cr := CompiledRequest{
			Method:  rd.Method,
			URL:     rd.URI,
			BidIDs:  make([]string, 0, len(rd.Slots)),
			Batched: rd.Batched,
		}
		if len(rd.Body) > 0 && json.Valid(rd.Body) {
			cr.Body = json.RawMessage(rd.Body)
		}
		for _, s := range rd.Slots {
			cr.BidIDs = append(cr.BidIDs, s.BidID)
		}
		resp.Requests = append(resp.Requests, cr)
	}

	logger.FromContext(r.Context()).Debug().
		Str("auction_id", resp.AuctionID).
		Int("requests", len(resp.Requests)).
		Int("errors", len(errs)).
		Msg("compiled auction")

	writeJSON(w, http.StatusOK, resp)
}
