package endpoints

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/usersync"
)

// UserSyncRequest is the JSON body of /fastlane/usersync. SyncedBidders
// are merged with the bidders recorded in the sync cookie.
type UserSyncRequest struct {
	usersync.Options
	SyncedBidders []string `json:"synced_bidders,omitempty"`
}

// UserSyncResponse is the JSON reply of /fastlane/usersync
type UserSyncResponse struct {
	UserSyncs     []usersync.SyncInfo `json:"user_syncs"`
	SyncedBidders []string            `json:"synced_bidders"`
}

// UserSyncHandler hands out user-sync directives at most once per bidder
type UserSyncHandler struct {
	adapter adapters.Adapter
}

// NewUserSyncHandler creates a new user sync handler
func NewUserSyncHandler(adapter adapters.Adapter) *UserSyncHandler {
	return &UserSyncHandler{adapter: adapter}
}

// ServeHTTP handles the sync request
func (h *UserSyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, config.DefaultMaxBodySize))
	if err != nil {
		writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	var req UserSyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, "invalid JSON in request body", http.StatusBadRequest)
		return
	}

	state := usersync.StateFromRequest(r)
	for _, bidder := range req.SyncedBidders {
		state = state.MarkSynced(bidder)
	}

	syncs, state := runUserSyncs(h.adapter, req.Options, state)
	if syncs == nil {
		syncs = []usersync.SyncInfo{}
	}
	setSyncCookie(w, r, state)

	writeJSON(w, http.StatusOK, UserSyncResponse{
		UserSyncs:     syncs,
		SyncedBidders: state.Bidders(),
	})
}
