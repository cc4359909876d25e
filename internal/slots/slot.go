// Package slots defines the ad-slot requests fed to bidder adapters and the
// normalized bids they return
package slots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaType is the media category of a slot
type MediaType string

const (
	MediaTypeBanner MediaType = "banner"
	MediaTypeVideo  MediaType = "video"
)

// Size is a width/height pair in pixels
type Size struct {
	W int
	H int
}

// String renders the size as "WxH"
func (s Size) String() string {
	return strconv.Itoa(s.W) + "x" + strconv.Itoa(s.H)
}

// MarshalJSON renders the size as [w, h]
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.W, s.H})
}

// UnmarshalJSON accepts [w, h] or "WxH"
func (s *Size) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, ok := ParseSize(str)
		if !ok {
			return fmt.Errorf("slots: invalid size %q", str)
		}
		*s = parsed
		return nil
	}

	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("slots: size needs 2 dimensions, got %d", len(pair))
	}
	*s = Size{W: pair[0], H: pair[1]}
	return nil
}

// ParseSize parses "WxH"
func ParseSize(str string) (Size, bool) {
	w, h, found := strings.Cut(strings.ToLower(strings.TrimSpace(str)), "x")
	if !found {
		return Size{}, false
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, false
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, false
	}
	return Size{W: width, H: height}, true
}

// Sizes is a list of sizes. A bare [w, h] pair decodes as one size.
type Sizes []Size

// UnmarshalJSON implements json.Unmarshaler
func (s *Sizes) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 2 {
		var w, h int
		if json.Unmarshal(raw[0], &w) == nil && json.Unmarshal(raw[1], &h) == nil {
			*s = Sizes{{W: w, H: h}}
			return nil
		}
	}

	out := make(Sizes, 0, len(raw))
	for _, r := range raw {
		var size Size
		if err := size.UnmarshalJSON(r); err != nil {
			return err
		}
		out = append(out, size)
	}
	*s = out
	return nil
}

// VideoParams holds the video-only slot parameters
type VideoParams struct {
	SizeID       int              `json:"size_id"`
	Language     string           `json:"language,omitempty"`
	PlayerWidth  int              `json:"playerWidth,omitempty"`
	PlayerHeight int              `json:"playerHeight,omitempty"`
	AEParams     map[string]Value `json:"aeParams,omitempty"`
}

// Params is the bidder parameter bag of a slot
type Params struct {
	AccountID Value            `json:"accountId"`
	SiteID    Value            `json:"siteId"`
	ZoneID    Value            `json:"zoneId"`
	Position  string           `json:"position,omitempty"`
	Floor     Value            `json:"floor"`
	Keywords  []string         `json:"keywords,omitempty"`
	Visitor   map[string]Value `json:"visitor,omitempty"`
	Inventory map[string]Value `json:"inventory,omitempty"`
	// Sizes are pre-resolved Fastlane size codes; they win over SlotRequest.Sizes
	Sizes    []int        `json:"sizes,omitempty"`
	Video    *VideoParams `json:"video,omitempty"`
	Secure   bool         `json:"secure,omitempty"`
	Referrer string       `json:"referrer,omitempty"`
	UserID   string       `json:"userId,omitempty"`
}

// SlotRequest is one ad placement submitted for bidding
type SlotRequest struct {
	BidID         string    `json:"bidId"`
	AdUnitCode    string    `json:"adUnitCode"`
	TransactionID string    `json:"transactionId,omitempty"`
	MediaType     MediaType `json:"mediaType,omitempty"`
	Sizes         Sizes     `json:"sizes,omitempty"`
	Params        Params    `json:"params"`
}

// IsVideo reports whether the slot is a video slot
func (s *SlotRequest) IsVideo() bool {
	return s.MediaType == MediaTypeVideo
}

// Page describes the page the auction runs on
type Page struct {
	// URL is the top-window URL
	URL          string `json:"url"`
	Secure       bool   `json:"secure"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
}

// Resolution renders the screen size as "WxH"
func (p Page) Resolution() string {
	return strconv.Itoa(p.ScreenWidth) + "x" + strconv.Itoa(p.ScreenHeight)
}

// BidderRequest is the auction context handed to an adapter
type BidderRequest struct {
	AuctionID    string
	AuctionStart time.Time
	Timeout      time.Duration
	Page         Page
	Slots        []*SlotRequest
}
