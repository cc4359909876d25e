package usersync

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

const (
	// CookieName is the name of the sync state cookie
	CookieName = "fastlane_synced"
	// DefaultTTL bounds how long a page keeps its sync state
	DefaultTTL = 24 * time.Hour
	// MaxCookieSize is the maximum cookie size in bytes
	MaxCookieSize = 4000
)

type cookiePayload struct {
	Bidders []string `json:"bidders"`
}

// StateFromRequest reads the sync state cookie. A missing or corrupt cookie
// yields an empty state.
func StateFromRequest(r *http.Request) State {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return NewState()
	}

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return NewState()
	}

	var p cookiePayload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return NewState()
	}
	return NewState(p.Bidders...)
}

// ToHTTPCookie encodes state as a cookie. Bidders past the size limit are
// left out.
func (s State) ToHTTPCookie(domain string) (*http.Cookie, error) {
	bidders := s.Bidders()

	var encoded string
	for {
		data, err := json.Marshal(cookiePayload{Bidders: bidders})
		if err != nil {
			return nil, err
		}
		encoded = base64.URLEncoding.EncodeToString(data)
		if len(encoded) <= MaxCookieSize || len(bidders) == 0 {
			break
		}
		bidders = bidders[:len(bidders)-1]
	}

	return &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   domain,
		Expires:  time.Now().Add(DefaultTTL),
		MaxAge:   int(DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}, nil
}
