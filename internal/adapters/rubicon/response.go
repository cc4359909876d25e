package rubicon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

// rawAd is one entry of the Fastlane "ads" list
type rawAd struct {
	Status           string         `json:"status"`
	CreativeID       slots.Value    `json:"creative_id"`
	CreativeType     string         `json:"creative_type"`
	CPM              slots.Value    `json:"cpm"`
	Deal             slots.Value    `json:"deal"`
	Advertiser       slots.Value    `json:"advertiser"`
	Network          slots.Value    `json:"network"`
	SizeID           slots.Value    `json:"size_id"`
	CreativeDepotURL string         `json:"creative_depot_url"`
	ImpressionID     string         `json:"impression_id"`
	Script           string         `json:"script"`
	Targeting        []rawTargeting `json:"targeting"`
}

type rawTargeting struct {
	Key    string            `json:"key"`
	Values []json.RawMessage `json:"values"`
}

// targetingValue renders a targeting value as a string. Scalars use their
// wire form; anything else keeps its JSON text.
func targetingValue(raw json.RawMessage) string {
	var v slots.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v.String()
}

// adCPM reads a cpm sent as a number or a numeric string. Anything else
// prices the ad at zero.
func adCPM(v slots.Value) float64 {
	if n, ok := v.Number(); ok {
		return n
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return 0
	}
	return n
}

const creativeTemplate = `<html>
<head><script type='text/javascript'>inDapIF=true;</script></head>
<body style='margin : 0; padding: 0;'>
<!-- Rubicon Project Ad Tag -->
<div data-rp-impression-id='%s'>
<script type='text/javascript'>%s</script>
</div>
</body>
</html>`

func renderCreative(script, impressionID string) string {
	return fmt.Sprintf(creativeTemplate, impressionID, script)
}

// MakeBids parses a Fastlane reply into bids
func (a *Adapter) MakeBids(request *adapters.RequestData, response *adapters.ResponseData) (*adapters.BidderResponse, []error) {
	if response.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if response.StatusCode == http.StatusBadRequest {
		return nil, []error{adapters.NewBadRequestError(bidderCode, string(response.Body))}
	}

	if response.StatusCode != http.StatusOK {
		return nil, []error{adapters.NewBadStatusError(bidderCode, response.StatusCode)}
	}

	bids, errs := a.InterpretResponse(response.Body, request)
	return &adapters.BidderResponse{
		Bids:     bids,
		Currency: config.DefaultCurrency,
	}, errs
}

// InterpretResponse turns a reply body into bids sorted by descending cpm.
//
// Ads carry no slot id. The i-th ad of a batched reply belongs to the i-th
// slot of the request; an unbatched reply belongs to its single slot. An ad
// whose status is not "ok" ends processing of the reply and later ads are
// discarded. A reply whose own status is not "ok" holds no bids.
func (a *Adapter) InterpretResponse(body []byte, request *adapters.RequestData) ([]*slots.Bid, []error) {
	if !json.Valid(body) {
		return nil, []error{adapters.NewParseError(bidderCode, errors.New("invalid JSON"))}
	}
	if request == nil || len(request.Slots) == 0 {
		return nil, nil
	}

	if status, err := jsonparser.GetString(body, "status"); err != nil || status != "ok" {
		return nil, nil
	}

	ads, dataType, _, err := jsonparser.Get(body, "ads")
	if err != nil {
		return nil, nil
	}

	// Video replies key the ad list by ad unit code
	if !request.Batched && request.Slots[0].IsVideo() {
		if dataType != jsonparser.Object {
			return nil, nil
		}
		ads, dataType, _, err = jsonparser.Get(ads, request.Slots[0].AdUnitCode)
		if err != nil {
			return nil, nil
		}
	}
	if dataType != jsonparser.Array {
		return nil, nil
	}

	var rawAds [][]byte
	_, err = jsonparser.ArrayEach(ads, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		rawAds = append(rawAds, value)
	})
	if err != nil {
		return nil, []error{adapters.NewParseError(bidderCode, err)}
	}

	netRevenue := config.Bool(a.store, config.KeyNetRevenue)
	bids := make([]*slots.Bid, 0, len(rawAds))
	var errs []error

	for i, raw := range rawAds {
		var ad rawAd
		if err := json.Unmarshal(raw, &ad); err != nil {
			errs = append(errs, adapters.NewParseError(bidderCode, fmt.Errorf("ad %d: %w", i, err)))
			continue
		}

		if ad.Status != "ok" {
			err := &MalformedAdError{Index: i, Status: ad.Status, Discarded: len(rawAds) - i - 1}
			a.log.Warn().Err(err).Int("bids_kept", len(bids)).Msg("failed ad ends reply")
			errs = append(errs, err)
			break
		}

		slot := request.Slots[0]
		if request.Batched {
			if i >= len(request.Slots) {
				continue
			}
			slot = request.Slots[i]
		}

		bid, err := a.buildBid(&ad, slot, netRevenue)
		if err != nil {
			a.log.Warn().Err(err).Str("bid_id", slot.BidID).Msg("ad dropped")
			errs = append(errs, err)
			continue
		}
		bids = append(bids, bid)
	}

	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CPM > bids[j].CPM
	})

	return bids, errs
}

// buildBid normalizes one ad for its slot
func (a *Adapter) buildBid(ad *rawAd, slot *slots.SlotRequest, netRevenue bool) (*slots.Bid, error) {
	bid := &slots.Bid{
		RequestID:  slot.BidID,
		Currency:   config.DefaultCurrency,
		CPM:        adCPM(ad.CPM),
		CreativeID: ad.CreativeID.String(),
		MediaType:  ad.CreativeType,
		DealID:     ad.Deal.String(),
		TTL:        config.BidTTLSeconds,
		NetRevenue: netRevenue,
		Meta: slots.BidMeta{
			AdvertiserID: ad.Advertiser,
			NetworkID:    ad.Network,
		},
	}

	if slot.IsVideo() {
		bid.Width, bid.Height, _ = videoSize(slot)
		bid.VastURL = ad.CreativeDepotURL
		bid.ImpressionID = ad.ImpressionID
		bid.VideoCacheKey = ad.ImpressionID
	} else {
		code, err := sizeCode(ad.SizeID)
		if err != nil {
			return nil, err
		}
		w, h, err := SizeDimensions(code)
		if err != nil {
			return nil, err
		}
		bid.Width, bid.Height = w, h
		bid.Ad = renderCreative(ad.Script, ad.ImpressionID)
	}

	bid.Targeting = map[string]string{"rpfl_elemid": slot.AdUnitCode}
	for _, t := range ad.Targeting {
		if len(t.Values) > 0 {
			bid.Targeting[t.Key] = targetingValue(t.Values[0])
		}
	}

	return bid, nil
}

// sizeCode reads a size_id sent as a number or a numeric string
func sizeCode(v slots.Value) (int, error) {
	if n, ok := v.Number(); ok {
		return int(n), nil
	}
	code, err := strconv.Atoi(v.String())
	if err != nil {
		return 0, &UnknownSizeCodeError{Code: 0}
	}
	return code, nil
}
