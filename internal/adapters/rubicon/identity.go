package rubicon

import (
	"encoding/json"

	"github.com/thenexusengine/tne_fastlane/internal/config"
)

// Identity is a third-party user identity
type Identity struct {
	ID         string `json:"id"`
	KeyVersion int    `json:"keyv"`
	OptOut     bool   `json:"-"`
}

// IdentityProvider supplies the current user's identity, if any
type IdentityProvider interface {
	Identity() (*Identity, bool)
}

// StaticIdentity is an IdentityProvider returning a fixed value
type StaticIdentity struct {
	Value *Identity
}

// Identity implements IdentityProvider
func (s StaticIdentity) Identity() (*Identity, bool) {
	return s.Value, s.Value != nil
}

// identityOverride is the JSON shape of the digiTrustId setting:
// {"success": true, "identity": {"id": "...", "keyv": 4, "privacy": {"optout": false}}}
type identityOverride struct {
	Success  bool `json:"success"`
	Identity *struct {
		ID      string `json:"id"`
		Keyv    int    `json:"keyv"`
		Privacy struct {
			OptOut bool `json:"optout"`
		} `json:"privacy"`
	} `json:"identity"`
}

// resolveIdentity prefers the configured override and falls back to the
// provider. Nothing is returned for an absent or opted-out user.
func (a *Adapter) resolveIdentity() *Identity {
	var id *Identity

	if raw := config.String(a.store, config.KeyDigiTrustID); raw != "" {
		var o identityOverride
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			a.log.Warn().Err(err).Msg("ignoring malformed identity override")
		} else if o.Success && o.Identity != nil {
			id = &Identity{ID: o.Identity.ID, KeyVersion: o.Identity.Keyv, OptOut: o.Identity.Privacy.OptOut}
		}
	}

	if id == nil && a.identity != nil {
		if provided, ok := a.identity.Identity(); ok {
			id = provided
		}
	}

	if id == nil || id.ID == "" || id.OptOut {
		return nil
	}
	return id
}
