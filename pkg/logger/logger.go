// Package logger provides structured logging for the Fastlane service
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line
const ServiceName = "fastlane"

type contextKey string

const (
	// RequestIDKey is the context key for the HTTP request ID
	RequestIDKey contextKey = "request_id"
	// AuctionIDKey is the context key for the auction ID
	AuctionIDKey contextKey = "auction_id"
)

// Log is the global logger. Init replaces it.
var Log = zerolog.New(os.Stdout).With().Timestamp().Str("service", ServiceName).Logger()

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	TimeFormat string
}

// DefaultConfig returns configuration from LOG_LEVEL and LOG_FORMAT
func DefaultConfig() Config {
	return Config{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "json"),
		TimeFormat: time.RFC3339,
	}
}

// Init configures the global logger
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	var base zerolog.Logger
	if cfg.Format == "console" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: cfg.TimeFormat})
	} else {
		base = zerolog.New(os.Stdout)
	}

	Log = base.Level(level).With().Timestamp().Str("service", ServiceName).Logger()
}

// WithRequestID stores a request ID on the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithAuctionID stores an auction ID on the context
func WithAuctionID(ctx context.Context, auctionID string) context.Context {
	return context.WithValue(ctx, AuctionIDKey, auctionID)
}

// FromContext returns a logger carrying any request/auction IDs found on ctx
func FromContext(ctx context.Context) *zerolog.Logger {
	lc := Log.With()
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		lc = lc.Str("request_id", v)
	}
	if v, ok := ctx.Value(AuctionIDKey).(string); ok && v != "" {
		lc = lc.Str("auction_id", v)
	}
	l := lc.Logger()
	return &l
}

// Auction returns a logger scoped to one auction
func Auction(auctionID string) *zerolog.Logger {
	l := Log.With().Str("auction_id", auctionID).Logger()
	return &l
}

// Bidder returns a logger scoped to one bidder adapter
func Bidder(bidderCode string) *zerolog.Logger {
	l := Log.With().Str("bidder", bidderCode).Logger()
	return &l
}

// HTTP returns the logger for the HTTP layer
func HTTP() *zerolog.Logger {
	return component("http")
}

// Storage returns the logger for settings storage
func Storage() *zerolog.Logger {
	return component("storage")
}

func component(name string) *zerolog.Logger {
	l := Log.With().Str("component", name).Logger()
	return &l
}

// RequestLogger accumulates fields for a single request
type RequestLogger struct {
	logger zerolog.Logger
	start  time.Time
}

// NewRequestLogger creates a request-scoped logger
func NewRequestLogger(requestID string) *RequestLogger {
	return &RequestLogger{
		logger: Log.With().Str("request_id", requestID).Logger(),
		start:  time.Now(),
	}
}

// WithField returns a copy with one more field attached
func (rl *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	return &RequestLogger{
		logger: rl.logger.With().Interface(key, value).Logger(),
		start:  rl.start,
	}
}

// Info logs at info level
func (rl *RequestLogger) Info(msg string) {
	rl.logger.Info().Msg(msg)
}

// Error logs at error level
func (rl *RequestLogger) Error(msg string, err error) {
	rl.logger.Error().Err(err).Msg(msg)
}

// Duration returns the time since the logger was created
func (rl *RequestLogger) Duration() time.Duration {
	return time.Since(rl.start)
}

// LogComplete logs request completion with status and duration
func (rl *RequestLogger) LogComplete(status int) {
	rl.logger.Info().
		Int("status", status).
		Float64("duration_ms", float64(rl.Duration().Microseconds())/1000.0).
		Msg("request completed")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
