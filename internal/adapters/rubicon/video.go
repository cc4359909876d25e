package rubicon

import (
	"encoding/json"
	"net/http"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

// videoRequest is the JSON body posted to the video endpoint
type videoRequest struct {
	PageURL        string                 `json:"page_url"`
	Resolution     string                 `json:"resolution"`
	AccountID      slots.Value            `json:"account_id"`
	Integration    string                 `json:"integration"`
	TransactionID  string                 `json:"x_source.tid,omitempty"`
	Timeout        int64                  `json:"timeout"`
	StashCreatives bool                   `json:"stash_creatives"`
	AEPassThrough  map[string]slots.Value `json:"ae_pass_through_parameters,omitempty"`
	Slots          []videoSlot            `json:"slots"`
}

type videoSlot struct {
	SiteID    slots.Value            `json:"site_id"`
	ZoneID    slots.Value            `json:"zone_id"`
	Position  string                 `json:"position"`
	Floor     slots.Value            `json:"floor"`
	ElementID string                 `json:"element_id"`
	Name      string                 `json:"name"`
	Language  string                 `json:"language,omitempty"`
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	SizeID    int                    `json:"size_id"`
	Inventory map[string]slots.Value `json:"inventory,omitempty"`
	Keywords  []string               `json:"keywords,omitempty"`
	Visitor   map[string]slots.Value `json:"visitor,omitempty"`
}

// remainingTimeout is the auction time left for the video endpoint in
// milliseconds, less the fixed buffer. It is a hint, not a deadline.
func (a *Adapter) remainingTimeout(req *slots.BidderRequest) int64 {
	now := a.now()
	start := req.AuctionStart
	if start.IsZero() {
		start = now
	}
	remaining := req.Timeout - (now.Sub(start) + config.TimeoutBuffer)
	return remaining.Milliseconds()
}

// makeVideoRequest compiles one video slot into a POST request
func (a *Adapter) makeVideoRequest(slot *slots.SlotRequest, req *slots.BidderRequest) (*adapters.RequestData, error) {
	params := slot.Params
	w, h, _ := videoSize(slot)

	position := params.Position
	if position == "" {
		position = config.DefaultPosition
	}

	floor := slots.NumberValue(config.MinFloor)
	if _, ok := parseFloor(params.Floor); ok {
		floor = params.Floor
	}

	body := videoRequest{
		PageURL:        a.pageURL(slot, req),
		Resolution:     req.Page.Resolution(),
		AccountID:      params.AccountID,
		Integration:    a.integration,
		TransactionID:  slot.TransactionID,
		Timeout:        a.remainingTimeout(req),
		StashCreatives: true,
		AEPassThrough:  params.Video.AEParams,
		Slots: []videoSlot{{
			SiteID:    params.SiteID,
			ZoneID:    params.ZoneID,
			Position:  position,
			Floor:     floor,
			ElementID: slot.AdUnitCode,
			Name:      slot.AdUnitCode,
			Language:  params.Video.Language,
			Width:     w,
			Height:    h,
			SizeID:    params.Video.SizeID,
			Inventory: params.Inventory,
			Keywords:  params.Keywords,
			Visitor:   params.Visitor,
		}},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, adapters.NewMarshalError(bidderCode, err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json;charset=utf-8")
	headers.Set("Accept", "application/json")

	return &adapters.RequestData{
		Method:  http.MethodPost,
		URI:     a.videoEndpoint,
		Body:    data,
		Headers: headers,
		Slots:   []*slots.SlotRequest{slot},
	}, nil
}
