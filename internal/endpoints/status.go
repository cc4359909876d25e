package endpoints

import (
	"net/http"
	"time"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
)

// StatusHandler handles /status requests
type StatusHandler struct {
	version string
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(version string) *StatusHandler {
	return &StatusHandler{version: version}
}

// ServeHTTP handles status requests
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// aliaser is implemented by adapters registered under extra codes
type aliaser interface {
	Aliases() []string
}

// InfoBiddersHandler handles /info/bidders requests
type InfoBiddersHandler struct {
	adapter adapters.Adapter
}

// NewInfoBiddersHandler creates a new bidders info handler
func NewInfoBiddersHandler(adapter adapters.Adapter) *InfoBiddersHandler {
	return &InfoBiddersHandler{adapter: adapter}
}

// ServeHTTP lists the bidder code and its aliases
func (h *InfoBiddersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bidders := []string{h.adapter.Code()}
	if a, ok := h.adapter.(aliaser); ok {
		bidders = append(bidders, a.Aliases()...)
	}
	writeJSON(w, http.StatusOK, bidders)
}
