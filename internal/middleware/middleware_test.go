package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

func echoBody() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		_, _ = w.Write(body)
	})
}

func TestLimitsFromEnv(t *testing.T) {
	t.Setenv("MAX_REQUEST_SIZE", "")
	t.Setenv("MAX_URL_LENGTH", "bogus")

	limits := LimitsFromEnv()
	assert.Equal(t, int64(config.DefaultMaxBodySize), limits.MaxBodySize)
	assert.Equal(t, config.DefaultMaxURLLength, limits.MaxURLLength)

	t.Setenv("MAX_REQUEST_SIZE", "2048")
	t.Setenv("MAX_URL_LENGTH", "100")
	assert.Equal(t, SizeLimits{MaxBodySize: 2048, MaxURLLength: 100}, LimitsFromEnv())
}

func TestSizeLimit(t *testing.T) {
	h := SizeLimit(SizeLimits{MaxBodySize: 16, MaxURLLength: 40})(echoBody())

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"within limits", "/fastlane/auction", `{"slots":[]}`, http.StatusOK},
		{"url too long", "/fastlane/auction?" + strings.Repeat("a", 40), "", http.StatusRequestURITooLong},
		{"body too large", "/fastlane/auction", strings.Repeat("x", 17), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSizeLimit_UnknownLength(t *testing.T) {
	h := SizeLimit(SizeLimits{MaxBodySize: 8, MaxURLLength: 100})(echoBody())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSizeLimit_ZeroDisables(t *testing.T) {
	h := SizeLimit(SizeLimits{})(echoBody())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/long/path", strings.NewReader("body")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body", rec.Body.String())
}

func TestLogging_RequestID(t *testing.T) {
	var seen string
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", seen)
}
