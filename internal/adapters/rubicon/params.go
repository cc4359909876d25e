package rubicon

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

// ParameterSet is an ordered wire-name to value mapping. Keys keep the
// position of their first insertion.
type ParameterSet struct {
	keys   []string
	values map[string]slots.Value
}

// NewParameterSet creates an empty ParameterSet
func NewParameterSet() *ParameterSet {
	return &ParameterSet{values: make(map[string]slots.Value)}
}

// Set stores value under key. Undefined values are kept so that combined
// sets stay positionally aligned; they are never serialized.
func (p *ParameterSet) Set(key string, value slots.Value) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key
func (p *ParameterSet) Get(key string) (slots.Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (p *ParameterSet) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys
func (p *ParameterSet) Len() int {
	return len(p.keys)
}

// Map flattens the sendable entries to strings
func (p *ParameterSet) Map() map[string]string {
	out := make(map[string]string, len(p.keys))
	for _, k := range p.keys {
		if v := p.values[k]; v.Sendable() {
			out[k] = v.String()
		}
	}
	return out
}

// Encode renders the sendable entries as "k=v&" pairs in key order. Only
// values are escaped.
func (p *ParameterSet) Encode() string {
	var b strings.Builder
	for _, k := range p.keys {
		v := p.values[k]
		if !v.Sendable() {
			continue
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(escapeComponent(v.String()))
		b.WriteByte('&')
	}
	return b.String()
}

// componentUnescaper restores the characters url.QueryEscape encodes but a
// URI component leaves alone
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent escapes s leaving A-Z a-z 0-9 - _ . ! ~ * ' ( ) intact
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

var accountIDPattern = regexp.MustCompile(`^\d+$`)

// validate checks the preconditions every compiled slot must meet
func validate(slot *slots.SlotRequest) error {
	if slot == nil {
		return &ValidationError{Reason: "missing slot"}
	}
	params := slot.Params

	if !accountIDPattern.MatchString(params.AccountID.String()) {
		return &ValidationError{BidID: slot.BidID, Reason: "accountId must be numeric"}
	}

	if slot.IsVideo() {
		if params.Video == nil || params.Video.SizeID == 0 {
			return &ValidationError{BidID: slot.BidID, Reason: "video slot requires video.size_id"}
		}
		if _, _, ok := videoSize(slot); !ok {
			return &ValidationError{BidID: slot.BidID, Reason: "video slot has no player size"}
		}
		return nil
	}

	if len(resolveSizes(slot)) == 0 {
		return &ValidationError{BidID: slot.BidID, Reason: "no supported sizes"}
	}
	return nil
}

// resolveSizes returns the slot's size codes in MAS order. Pre-resolved
// codes win over size pairs; codes missing from the size table are dropped.
func resolveSizes(slot *slots.SlotRequest) []int {
	if len(slot.Params.Sizes) > 0 {
		known := make([]int, 0, len(slot.Params.Sizes))
		for _, code := range slot.Params.Sizes {
			if _, ok := sizeTable[code]; ok {
				known = append(known, code)
			}
		}
		return MASSizeOrdering(known)
	}
	return MASSizeOrdering(mapSizes(slot.Sizes))
}

// videoSize returns the player size, falling back to the first slot size
func videoSize(slot *slots.SlotRequest) (w, h int, ok bool) {
	if v := slot.Params.Video; v != nil && v.PlayerWidth > 0 && v.PlayerHeight > 0 {
		return v.PlayerWidth, v.PlayerHeight, true
	}
	if len(slot.Sizes) > 0 {
		return slot.Sizes[0].W, slot.Sizes[0].H, true
	}
	return 0, 0, false
}

var minFloor = decimal.NewFromFloat(config.MinFloor)

// parseFloor reports the floor as a decimal and whether it clears the
// minimum floor
func parseFloor(v slots.Value) (decimal.Decimal, bool) {
	if !v.IsDefined() {
		return minFloor, false
	}
	var (
		d   decimal.Decimal
		err error
	)
	if n, ok := v.Number(); ok {
		d = decimal.NewFromFloat(n)
	} else {
		d, err = decimal.NewFromString(strings.TrimSpace(v.String()))
		if err != nil {
			return minFloor, false
		}
	}
	if !d.GreaterThan(minFloor) {
		return minFloor, false
	}
	return d, true
}

// pageURL resolves the page URL: slot referrer, configured page URL, then
// the page itself. Secure slots get an https scheme.
func (a *Adapter) pageURL(slot *slots.SlotRequest, req *slots.BidderRequest) string {
	pageURL := slot.Params.Referrer
	if pageURL == "" {
		pageURL = config.String(a.store, config.KeyPageURL)
	}
	if pageURL == "" && req != nil {
		pageURL = req.Page.URL
	}
	if slot.Params.Secure && len(pageURL) >= 5 && strings.EqualFold(pageURL[:5], "http:") {
		pageURL = "https:" + pageURL[5:]
	}
	return pageURL
}

// SlotParams builds the Fastlane query parameters for one standard slot
func (a *Adapter) SlotParams(slot *slots.SlotRequest, req *slots.BidderRequest) (*ParameterSet, error) {
	if err := validate(slot); err != nil {
		return nil, err
	}
	if req == nil {
		req = &slots.BidderRequest{}
	}
	params := slot.Params
	sizes := resolveSizes(slot)

	altSizes := slots.Value{}
	if len(sizes) > 1 {
		alt := make([]string, len(sizes)-1)
		for i, code := range sizes[1:] {
			alt[i] = strconv.Itoa(code)
		}
		altSizes = slots.StringValue(strings.Join(alt, ","))
	}

	position := params.Position
	if position == "" {
		position = config.DefaultPosition
	}

	floor, _ := parseFloor(params.Floor)

	secure := "0"
	if req.Page.Secure {
		secure = "1"
	}

	userKey := slots.Value{}
	if params.UserID != "" {
		userKey = slots.StringValue(params.UserID)
	}

	ps := NewParameterSet()
	ps.Set("account_id", params.AccountID)
	ps.Set("site_id", params.SiteID)
	ps.Set("zone_id", params.ZoneID)
	ps.Set("size_id", slots.IntValue(sizes[0]))
	ps.Set("alt_size_ids", altSizes)
	ps.Set("p_pos", slots.StringValue(position))
	ps.Set("rp_floor", slots.NumberValue(floor.InexactFloat64()))
	ps.Set("rp_secure", slots.StringValue(secure))
	ps.Set("tk_flint", slots.StringValue(a.integration))
	ps.Set("x_source.tid", slots.StringValue(slot.TransactionID))
	ps.Set("p_screen_res", slots.StringValue(req.Page.Resolution()))
	ps.Set("kw", slots.StringValue(strings.Join(params.Keywords, ",")))
	ps.Set("tk_user_key", userKey)
	ps.Set("tg_fl.eid", slots.StringValue(slot.AdUnitCode))
	ps.Set("rf", slots.StringValue(a.pageURL(slot, req)))

	setPrefixed(ps, "tg_v.", params.Visitor)
	setPrefixed(ps, "tg_i.", params.Inventory)

	if id := a.resolveIdentity(); id != nil {
		ps.Set("dt.id", slots.StringValue(id.ID))
		ps.Set("dt.keyv", slots.IntValue(id.KeyVersion))
		ps.Set("dt.pref", slots.IntValue(0))
	}

	return ps, nil
}

// setPrefixed fans a custom-dimension map out as prefix+key entries in
// sorted key order
func setPrefixed(ps *ParameterSet, prefix string, m map[string]slots.Value) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ps.Set(prefix+k, m[k])
	}
}
