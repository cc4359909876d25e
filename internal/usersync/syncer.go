// Package usersync provides user ID synchronization for bidders
package usersync

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SyncType represents the type of user sync
type SyncType string

const (
	// SyncTypeIframe uses an iframe to sync
	SyncTypeIframe SyncType = "iframe"
	// SyncTypeRedirect uses a redirect/pixel to sync
	SyncTypeRedirect SyncType = "redirect"
)

// SyncerConfig holds the sync configuration for a bidder
type SyncerConfig struct {
	// BidderCode is the bidder identifier
	BidderCode string
	// IframeSyncURL is the URL template for iframe syncs.
	// {{gdpr}}, {{gdpr_consent}} and {{us_privacy}} are substituted.
	IframeSyncURL string
	// RedirectSyncURL is the URL template for pixel syncs
	RedirectSyncURL string
	// Enabled indicates if syncing is enabled for this bidder
	Enabled bool
}

// Syncer handles user sync URL generation for a bidder
type Syncer struct {
	config SyncerConfig
}

// NewSyncer creates a new syncer for a bidder
func NewSyncer(config SyncerConfig) *Syncer {
	return &Syncer{config: config}
}

// SyncInfo is one sync directive for the page
type SyncInfo struct {
	URL    string   `json:"url"`
	Type   SyncType `json:"type"`
	Bidder string   `json:"bidder,omitempty"`
}

// Options are the caller's sync permissions
type Options struct {
	IframeEnabled bool   `json:"iframe_enabled"`
	PixelEnabled  bool   `json:"pixel_enabled"`
	GDPR          string `json:"gdpr,omitempty"`
	GDPRConsent   string `json:"gdpr_consent,omitempty"`
	USPrivacy     string `json:"us_privacy,omitempty"`
}

// State records which bidders already synced during one page lifetime.
// It is a value: MarkSynced returns a new State and never mutates the receiver.
type State struct {
	synced map[string]struct{}
}

// NewState builds a State from a list of already-synced bidders
func NewState(bidders ...string) State {
	s := State{synced: make(map[string]struct{}, len(bidders))}
	for _, b := range bidders {
		s.synced[b] = struct{}{}
	}
	return s
}

// HasSynced reports whether bidder already synced
func (s State) HasSynced(bidder string) bool {
	_, ok := s.synced[bidder]
	return ok
}

// MarkSynced returns a copy of s with bidder marked as synced
func (s State) MarkSynced(bidder string) State {
	out := State{synced: make(map[string]struct{}, len(s.synced)+1)}
	for b := range s.synced {
		out.synced[b] = struct{}{}
	}
	out.synced[bidder] = struct{}{}
	return out
}

// Bidders lists the synced bidders in sorted order
func (s State) Bidders() []string {
	out := make([]string, 0, len(s.synced))
	for b := range s.synced {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// GetSync returns the sync directive of the requested type
func (s *Syncer) GetSync(syncType SyncType, opts Options) (*SyncInfo, error) {
	if !s.config.Enabled {
		return nil, fmt.Errorf("syncing disabled for %s", s.config.BidderCode)
	}

	var urlTemplate string
	switch syncType {
	case SyncTypeIframe:
		urlTemplate = s.config.IframeSyncURL
	case SyncTypeRedirect:
		urlTemplate = s.config.RedirectSyncURL
	default:
		return nil, fmt.Errorf("unknown sync type %q", syncType)
	}

	if urlTemplate == "" {
		return nil, fmt.Errorf("no %s sync URL for %s", syncType, s.config.BidderCode)
	}

	syncURL := urlTemplate
	syncURL = strings.ReplaceAll(syncURL, "{{gdpr}}", opts.GDPR)
	syncURL = strings.ReplaceAll(syncURL, "{{gdpr_consent}}", url.QueryEscape(opts.GDPRConsent))
	syncURL = strings.ReplaceAll(syncURL, "{{us_privacy}}", url.QueryEscape(opts.USPrivacy))

	return &SyncInfo{
		URL:    syncURL,
		Type:   syncType,
		Bidder: s.config.BidderCode,
	}, nil
}

// SyncOnce returns at most one directive per page state. It prefers an
// iframe sync and falls back to a pixel when only pixels are allowed.
func (s *Syncer) SyncOnce(opts Options, state State) ([]SyncInfo, State) {
	bidder := s.config.BidderCode
	if state.HasSynced(bidder) {
		return nil, state
	}

	var types []SyncType
	if opts.IframeEnabled {
		types = append(types, SyncTypeIframe)
	}
	if opts.PixelEnabled {
		types = append(types, SyncTypeRedirect)
	}

	for _, t := range types {
		info, err := s.GetSync(t, opts)
		if err != nil {
			continue
		}
		return []SyncInfo{*info}, state.MarkSynced(bidder)
	}
	return nil, state
}

// BidderCode returns the bidder code
func (s *Syncer) BidderCode() string {
	return s.config.BidderCode
}

// IsEnabled returns true if syncing is enabled
func (s *Syncer) IsEnabled() bool {
	return s.config.Enabled
}
