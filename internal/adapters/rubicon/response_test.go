package rubicon

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/thenexusengine/tne_fastlane/internal/adapters"
	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

func batchedRequest(s ...*slots.SlotRequest) *adapters.RequestData {
	return &adapters.RequestData{Method: http.MethodGet, Slots: s, Batched: true}
}

func okResponse(body string) *adapters.ResponseData {
	return &adapters.ResponseData{StatusCode: http.StatusOK, Body: []byte(body)}
}

func TestMakeBids_SingleSlot(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	slot := bannerSlot("b1", "70608")
	request := &adapters.RequestData{Slots: []*slots.SlotRequest{slot}}

	body := `{
		"status": "ok",
		"ads": [{
			"status": "ok",
			"impression_id": "imp-1",
			"size_id": 15,
			"ad_id": "6",
			"advertiser": 7,
			"network": 8,
			"creative_id": "crid-9",
			"creative_type": "banner",
			"cpm": 0.811,
			"deal": 12,
			"script": "alert('foo')",
			"targeting": [
				{"key": "rpfl_14062", "values": ["15_tier_all_test"]},
				{"key": "empty", "values": []}
			]
		}]
	}`

	resp, errs := adapter.MakeBids(request, okResponse(body))
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if resp == nil || len(resp.Bids) != 1 {
		t.Fatalf("Expected 1 bid, got %+v", resp)
	}
	if resp.Currency != "USD" {
		t.Errorf("Expected USD, got %s", resp.Currency)
	}

	bid := resp.Bids[0]
	if bid.RequestID != "b1" {
		t.Errorf("Expected requestId b1, got %s", bid.RequestID)
	}
	if bid.CPM != 0.811 {
		t.Errorf("Expected cpm 0.811, got %f", bid.CPM)
	}
	if bid.Width != 300 || bid.Height != 250 {
		t.Errorf("Expected 300x250, got %dx%d", bid.Width, bid.Height)
	}
	if bid.TTL != 300 || bid.Currency != "USD" || bid.NetRevenue {
		t.Errorf("Unexpected defaults: ttl=%d currency=%s netRevenue=%v", bid.TTL, bid.Currency, bid.NetRevenue)
	}
	if bid.CreativeID != "crid-9" || bid.MediaType != "banner" || bid.DealID != "12" {
		t.Errorf("Unexpected creative fields: %+v", bid)
	}
	if bid.Meta.AdvertiserID.String() != "7" || bid.Meta.NetworkID.String() != "8" {
		t.Errorf("Unexpected meta: %+v", bid.Meta)
	}
	if !strings.Contains(bid.Ad, "data-rp-impression-id='imp-1'") ||
		!strings.Contains(bid.Ad, "<script type='text/javascript'>alert('foo')</script>") {
		t.Errorf("Unexpected markup: %s", bid.Ad)
	}

	if len(bid.Targeting) != 2 {
		t.Errorf("Expected 2 targeting keys, got %v", bid.Targeting)
	}
	if bid.Targeting["rpfl_elemid"] != "unit-b1" {
		t.Errorf("Expected rpfl_elemid unit-b1, got %s", bid.Targeting["rpfl_elemid"])
	}
	if bid.Targeting["rpfl_14062"] != "15_tier_all_test" {
		t.Errorf("Unexpected targeting: %v", bid.Targeting)
	}
}

func TestMakeBids_NetRevenueFromSettings(t *testing.T) {
	adapter := newTestAdapter(config.Settings{config.KeyNetRevenue: "true"})
	request := batchedRequest(bannerSlot("b1", "70608"))

	resp, _ := adapter.MakeBids(request, okResponse(`{"status":"ok","ads":[{"status":"ok","cpm":1,"size_id":15}]}`))
	if len(resp.Bids) != 1 || !resp.Bids[0].NetRevenue {
		t.Error("Expected net revenue bid")
	}
}

func TestMakeBids_TopLevelError(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("b1", "70608"))

	body := `{"status":"error","ads":[{"status":"ok","cpm":1,"size_id":15}]}`
	resp, errs := adapter.MakeBids(request, okResponse(body))
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(resp.Bids) != 0 {
		t.Errorf("Expected no bids, got %d", len(resp.Bids))
	}
}

func TestInterpretResponse_NoAds(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("b1", "70608"))

	bodies := []string{
		`{"status":"ok"}`,
		`{"status":"ok","ads":[]}`,
		`{"status":"ok","ads":"none"}`,
		`{"ads":[{"status":"ok","cpm":1,"size_id":15}]}`,
		`[]`,
	}
	for _, body := range bodies {
		bids, errs := adapter.InterpretResponse([]byte(body), request)
		if len(bids) != 0 || len(errs) != 0 {
			t.Errorf("%s: expected no bids and no errors, got %d bids %v", body, len(bids), errs)
		}
	}
}

func TestInterpretResponse_FailedAdEndsReply(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"), bannerSlot("s2", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":1,"size_id":15},
		{"status":"error","cpm":2,"size_id":15},
		{"status":"ok","cpm":3,"size_id":15}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 1 {
		t.Fatalf("Expected 1 bid, got %d", len(bids))
	}
	if bids[0].RequestID != "s0" {
		t.Errorf("Expected bid for s0, got %s", bids[0].RequestID)
	}

	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	var malformed *MalformedAdError
	if !errors.As(errs[0], &malformed) {
		t.Fatalf("Expected MalformedAdError, got %v", errs[0])
	}
	if malformed.Index != 1 || malformed.Discarded != 1 || malformed.Status != "error" {
		t.Errorf("Unexpected error detail: %+v", malformed)
	}
}

func TestInterpretResponse_SortedByPrice(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"), bannerSlot("s2", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":1.5,"size_id":15},
		{"status":"ok","size_id":15},
		{"status":"ok","cpm":3.0,"size_id":15}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(bids) != 3 {
		t.Fatalf("Expected 3 bids, got %d", len(bids))
	}

	wantCPM := []float64{3.0, 1.5, 0}
	wantID := []string{"s2", "s0", "s1"}
	for i, bid := range bids {
		if bid.CPM != wantCPM[i] || bid.RequestID != wantID[i] {
			t.Errorf("bid %d = %s@%v, want %s@%v", i, bid.RequestID, bid.CPM, wantID[i], wantCPM[i])
		}
	}
}

func TestInterpretResponse_StableForEqualPrices(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"), bannerSlot("s2", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":1,"size_id":15},
		{"status":"ok","cpm":2,"size_id":15},
		{"status":"ok","cpm":1,"size_id":15}
	]}`

	bids, _ := adapter.InterpretResponse([]byte(body), request)
	got := []string{bids[0].RequestID, bids[1].RequestID, bids[2].RequestID}
	want := []string{"s1", "s0", "s2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestInterpretResponse_PositionalCorrelation(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	s0 := bannerSlot("s0", "1")
	s1 := bannerSlot("s1", "1")

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":1,"size_id":15},
		{"status":"ok","cpm":2,"size_id":2},
		{"status":"ok","cpm":3,"size_id":9}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), batchedRequest(s0, s1))
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(bids) != 2 {
		t.Fatalf("Expected ads beyond the batch to be skipped, got %d bids", len(bids))
	}
	if bids[0].RequestID != "s1" || bids[0].Width != 728 {
		t.Errorf("Expected ad 1 to map to s1 at 728x90, got %+v", bids[0])
	}
	if bids[1].RequestID != "s0" || bids[1].Width != 300 {
		t.Errorf("Expected ad 0 to map to s0 at 300x250, got %+v", bids[1])
	}
}

func TestInterpretResponse_UnbatchedMapsEveryAdToSlot(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := &adapters.RequestData{Slots: []*slots.SlotRequest{bannerSlot("only", "1")}}

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":1,"size_id":15},
		{"status":"ok","cpm":2,"size_id":2}
	]}`

	bids, _ := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 2 {
		t.Fatalf("Expected 2 bids, got %d", len(bids))
	}
	for _, bid := range bids {
		if bid.RequestID != "only" {
			t.Errorf("Expected requestId only, got %s", bid.RequestID)
		}
	}
}

func TestInterpretResponse_UnknownSizeDropsAd(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":2,"size_id":9999},
		{"status":"ok","cpm":1,"size_id":"2"}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 1 || bids[0].RequestID != "s1" {
		t.Fatalf("Expected only s1 to bid, got %+v", bids)
	}
	if bids[0].Width != 728 || bids[0].Height != 90 {
		t.Errorf("Expected 728x90, got %dx%d", bids[0].Width, bids[0].Height)
	}
	var unknown *UnknownSizeCodeError
	if len(errs) != 1 || !errors.As(errs[0], &unknown) || unknown.Code != 9999 {
		t.Errorf("Expected UnknownSizeCodeError for 9999, got %v", errs)
	}
}

func TestInterpretResponse_Video(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	video := videoSlotRequest("v")
	request := &adapters.RequestData{Method: http.MethodPost, Slots: []*slots.SlotRequest{video}}

	body := `{"status":"ok","ads":{"video-v":[{
		"status":"ok",
		"cpm":5,
		"creative_type":"video",
		"creative_depot_url":"https://cdn.test/vast.xml",
		"impression_id":"imp-9",
		"advertiser":12345
	}]}}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(bids) != 1 {
		t.Fatalf("Expected 1 bid, got %d", len(bids))
	}

	bid := bids[0]
	if bid.Width != 640 || bid.Height != 360 {
		t.Errorf("Expected player size 640x360, got %dx%d", bid.Width, bid.Height)
	}
	if bid.VastURL != "https://cdn.test/vast.xml" {
		t.Errorf("Unexpected vastUrl %s", bid.VastURL)
	}
	if bid.ImpressionID != "imp-9" || bid.VideoCacheKey != "imp-9" {
		t.Errorf("Unexpected impression fields: %+v", bid)
	}
	if bid.Ad != "" {
		t.Error("Expected no markup for video")
	}
	if bid.Targeting["rpfl_elemid"] != "video-v" {
		t.Errorf("Unexpected targeting %v", bid.Targeting)
	}
}

func TestInterpretResponse_VideoOtherUnit(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := &adapters.RequestData{Slots: []*slots.SlotRequest{videoSlotRequest("v")}}

	body := `{"status":"ok","ads":{"other":[{"status":"ok","cpm":5}]}}`
	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 0 || len(errs) != 0 {
		t.Errorf("Expected nothing, got %d bids %v", len(bids), errs)
	}
}

func TestInterpretResponse_VideoArrayAds(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := &adapters.RequestData{Method: http.MethodPost, Slots: []*slots.SlotRequest{videoSlotRequest("v")}}

	body := `{"status":"ok","ads":[{"status":"ok","cpm":5,"creative_type":"video"}]}`
	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 0 || len(errs) != 0 {
		t.Errorf("Expected nothing, got %d bids %v", len(bids), errs)
	}
}

func TestInterpretResponse_LenientAdFields(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":"2.5","size_id":15,"targeting":[{"key":"obj","values":[{"a":1}]}]},
		{"status":"ok","cpm":1,"size_id":15}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(bids) != 2 {
		t.Fatalf("Expected 2 bids, got %d", len(bids))
	}
	if bids[0].RequestID != "s0" || bids[0].CPM != 2.5 {
		t.Errorf("Expected s0@2.5 first, got %s@%v", bids[0].RequestID, bids[0].CPM)
	}
	if bids[0].Targeting["obj"] != `{"a":1}` {
		t.Errorf("Unexpected targeting %v", bids[0].Targeting)
	}
}

func TestInterpretResponse_UndecodableAdSkipped(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("s0", "1"), bannerSlot("s1", "1"))

	body := `{"status":"ok","ads":[
		{"status":"ok","cpm":{"bad":true},"size_id":15},
		{"status":"ok","cpm":1,"size_id":15}
	]}`

	bids, errs := adapter.InterpretResponse([]byte(body), request)
	if len(bids) != 1 || bids[0].RequestID != "s1" {
		t.Fatalf("Expected the bid for s1 to survive, got %+v", bids)
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	var bidderErr *adapters.BidderError
	if !errors.As(errs[0], &bidderErr) || bidderErr.Code != adapters.ErrorCodeParse {
		t.Errorf("Expected parse error, got %v", errs[0])
	}
}

func TestMakeBids_Statuses(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})
	request := batchedRequest(bannerSlot("b1", "70608"))

	tests := []struct {
		name   string
		status int
		body   string
		code   adapters.BidderErrorCode
	}{
		{"bad request", http.StatusBadRequest, "oops", adapters.ErrorCodeBadRequest},
		{"server error", http.StatusInternalServerError, "", adapters.ErrorCodeBadStatus},
		{"unparsable", http.StatusOK, "{not json", adapters.ErrorCodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := adapter.MakeBids(request, &adapters.ResponseData{StatusCode: tt.status, Body: []byte(tt.body)})
			if len(errs) != 1 {
				t.Fatalf("Expected 1 error, got %v", errs)
			}
			var bidderErr *adapters.BidderError
			if !errors.As(errs[0], &bidderErr) {
				t.Fatalf("Expected BidderError, got %T", errs[0])
			}
			if bidderErr.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, bidderErr.Code)
			}
		})
	}
}

func TestMakeBids_NoContent(t *testing.T) {
	adapter := newTestAdapter(config.Settings{})

	resp, errs := adapter.MakeBids(batchedRequest(), &adapters.ResponseData{StatusCode: http.StatusNoContent})
	if len(errs) > 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if resp != nil {
		t.Error("Expected nil response for NoContent")
	}
}
