// Package endpoints provides the Fastlane HTTP handlers
package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
	"github.com/thenexusengine/tne_fastlane/internal/usersync"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// maxSlotsPerRequest bounds the slots accepted in one auction body
const maxSlotsPerRequest = 100

// AuctionRequest is the JSON body of /fastlane/auction and /fastlane/compile
type AuctionRequest struct {
	AuctionID string               `json:"auction_id,omitempty"`
	TimeoutMS int                  `json:"timeout_ms,omitempty"`
	Page      slots.Page           `json:"page"`
	Slots     []*slots.SlotRequest `json:"slots"`
	Sync      *usersync.Options    `json:"sync,omitempty"`
}

// decodeAuctionRequest reads and validates an auction body
func decodeAuctionRequest(r *http.Request) (*AuctionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, config.DefaultMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	var req AuctionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON in request body: %w", err)
	}
	if err := validateAuctionRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func validateAuctionRequest(req *AuctionRequest) error {
	if len(req.Slots) == 0 {
		return errors.New("at least one slot is required")
	}
	if len(req.Slots) > maxSlotsPerRequest {
		return fmt.Errorf("too many slots: %d (max %d)", len(req.Slots), maxSlotsPerRequest)
	}
	if req.TimeoutMS < 0 {
		return errors.New("timeout_ms must not be negative")
	}

	seen := make(map[string]bool, len(req.Slots))
	for i, s := range req.Slots {
		if s == nil {
			return fmt.Errorf("slot %d is null", i)
		}
		if strings.TrimSpace(s.BidID) == "" {
			return fmt.Errorf("slot %d: bidId is required", i)
		}
		if seen[s.BidID] {
			return fmt.Errorf("slot %d: duplicate bidId %q", i, s.BidID)
		}
		seen[s.BidID] = true
	}
	return nil
}

// toBidderRequest converts the body into the adapter input, generating the
// auction id and missing transaction ids
func (req *AuctionRequest) toBidderRequest(now time.Time) *slots.BidderRequest {
	if req.AuctionID == "" {
		req.AuctionID = uuid.NewString()
	}
	for _, s := range req.Slots {
		if s.TransactionID == "" {
			s.TransactionID = uuid.NewString()
		}
	}

	return &slots.BidderRequest{
		AuctionID:    req.AuctionID,
		AuctionStart: now,
		Timeout:      time.Duration(req.TimeoutMS) * time.Millisecond,
		Page:         req.Page,
		Slots:        req.Slots,
	}
}

// errorStrings renders errs for a JSON reply
func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// cookieDomain strips the port from the request host
func cookieDomain(r *http.Request) string {
	host := r.Host
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.HTTP().Error().Err(err).Msg("failed to encode response")
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
