package rubicon

import "github.com/thenexusengine/tne_fastlane/internal/usersync"

// syncer returns the iframe syncer for the configured sync URL
func (a *Adapter) syncer() *usersync.Syncer {
	return usersync.NewSyncer(usersync.SyncerConfig{
		BidderCode:    bidderCode,
		IframeSyncURL: a.syncURL,
		Enabled:       true,
	})
}

// UserSyncs returns at most one iframe sync per page state. Only iframe
// syncs are offered, so pixel-only permissions yield nothing.
func (a *Adapter) UserSyncs(opts usersync.Options, state usersync.State) ([]usersync.SyncInfo, usersync.State) {
	if !opts.IframeEnabled {
		return nil, state
	}
	return a.syncer().SyncOnce(usersync.Options{
		IframeEnabled: true,
		GDPR:          opts.GDPR,
		GDPRConsent:   opts.GDPRConsent,
		USPrivacy:     opts.USPrivacy,
	}, state)
}
