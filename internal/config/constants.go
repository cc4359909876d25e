// Package config provides shared configuration constants and the settings store
package config

import "time"

// Server timeout defaults
const (
	// ServerReadTimeout is the maximum duration for reading the entire request
	ServerReadTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration before timing out writes of the response
	ServerWriteTimeout = 10 * time.Second

	// ServerIdleTimeout is the maximum time to wait for the next request when keep-alives are enabled
	ServerIdleTimeout = 120 * time.Second

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

// Size limiting defaults
const (
	// DefaultMaxBodySize is the default maximum request body size (1MB)
	DefaultMaxBodySize = 1024 * 1024

	// DefaultMaxURLLength is the default maximum URL length (8KB)
	DefaultMaxURLLength = 8192
)

// Redis defaults
const (
	// RedisPoolSize is the default connection pool size
	RedisPoolSize = 100

	// RedisSettingsKey is the hash holding Fastlane settings
	RedisSettingsKey = "fastlane:settings"
)

// Exchange defaults
const (
	// DefaultAuctionTimeout is the default timeout for auctions
	DefaultAuctionTimeout = 1000 * time.Millisecond

	// DefaultMaxConcurrentRequests bounds in-flight wire requests per auction
	DefaultMaxConcurrentRequests = 10
)

// Fastlane protocol constants
const (
	// FastlaneEndpoint receives standard (display) slot requests as GET query strings
	FastlaneEndpoint = "https://fastlane.rubiconproject.com/a/api/fastlane.json"

	// VideoEndpoint receives video slot requests as JSON POST bodies
	VideoEndpoint = "https://fastlane-adv.rubiconproject.com/v1/auction/video"

	// SyncEndpoint is the iframe user-sync page
	SyncEndpoint = "https://tap-secure.rubiconproject.com/partner/scripts/rubicon/emily.html?rtb_ext=1"

	// MaxBatchSlots is the single-request slot limit enforced by Fastlane
	MaxBatchSlots = 10

	// TimeoutBuffer is subtracted from the remaining auction time sent to the video endpoint
	TimeoutBuffer = 500 * time.Millisecond

	// BidTTLSeconds is how long a returned bid stays valid
	BidTTLSeconds = 300

	// MinFloor is the lowest floor price sent upstream
	MinFloor = 0.01

	// DefaultCurrency is the only currency Fastlane bids in
	DefaultCurrency = "USD"

	// DefaultPosition is used when a slot does not declare one
	DefaultPosition = "btf"
)

// Settings keys understood by the Fastlane adapter
const (
	KeyPageURL       = "pageUrl"
	KeyNetRevenue    = "rubicon.netRevenue"
	KeySingleRequest = "rubicon.singleRequest"
	KeyDigiTrustID   = "digiTrustId"
)
