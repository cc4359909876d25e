package slots

// BidMeta carries advertiser metadata returned with an ad
type BidMeta struct {
	AdvertiserID Value `json:"advertiserId"`
	NetworkID    Value `json:"networkId"`
}

// Bid is a normalized bid. It is not modified after an adapter returns it.
type Bid struct {
	// RequestID is the BidID of the originating SlotRequest
	RequestID     string            `json:"requestId"`
	Currency      string            `json:"currency"`
	CPM           float64           `json:"cpm"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	CreativeID    string            `json:"creativeId,omitempty"`
	MediaType     string            `json:"mediaType,omitempty"`
	DealID        string            `json:"dealId,omitempty"`
	TTL           int               `json:"ttl"`
	NetRevenue    bool              `json:"netRevenue"`
	Ad            string            `json:"ad,omitempty"`
	VastURL       string            `json:"vastUrl,omitempty"`
	ImpressionID  string            `json:"impressionId,omitempty"`
	VideoCacheKey string            `json:"videoCacheKey,omitempty"`
	Targeting     map[string]string `json:"targeting,omitempty"`
	Meta          BidMeta           `json:"meta"`
}
