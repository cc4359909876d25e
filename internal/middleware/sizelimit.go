// Package middleware provides HTTP middleware for the Fastlane service
package middleware

import (
	"net/http"
	"os"
	"strconv"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// SizeLimits bounds incoming requests. A zero field disables that check.
type SizeLimits struct {
	MaxBodySize  int64
	MaxURLLength int
}

// LimitsFromEnv reads MAX_REQUEST_SIZE and MAX_URL_LENGTH, falling back to
// the configured defaults
func LimitsFromEnv() SizeLimits {
	limits := SizeLimits{
		MaxBodySize:  config.DefaultMaxBodySize,
		MaxURLLength: config.DefaultMaxURLLength,
	}
	if n, err := strconv.ParseInt(os.Getenv("MAX_REQUEST_SIZE"), 10, 64); err == nil && n > 0 {
		limits.MaxBodySize = n
	}
	if n, err := strconv.Atoi(os.Getenv("MAX_URL_LENGTH")); err == nil && n > 0 {
		limits.MaxURLLength = n
	}
	return limits
}

// SizeLimit rejects URLs and bodies over limits. Bodies without a declared
// length are cut off by http.MaxBytesReader.
func SizeLimit(limits SizeLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limits.MaxURLLength > 0 && len(r.URL.String()) > limits.MaxURLLength {
				logger.HTTP().Warn().
					Int("length", len(r.URL.String())).
					Int("max", limits.MaxURLLength).
					Msg("URL too long")
				http.Error(w, `{"error":"URL too long"}`, http.StatusRequestURITooLong)
				return
			}

			if limits.MaxBodySize > 0 {
				if r.ContentLength > limits.MaxBodySize {
					logger.HTTP().Warn().
						Int64("length", r.ContentLength).
						Int64("max", limits.MaxBodySize).
						Msg("request body too large")
					http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
					return
				}
				if r.Body != nil {
					r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBodySize)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
