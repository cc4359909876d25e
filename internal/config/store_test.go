package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettings_Get(t *testing.T) {
	s := Settings{KeyPageURL: "http://example.com"}

	v, ok := s.Get(KeyPageURL)
	assert.True(t, ok)
	assert.Equal(t, "http://example.com", v)

	_, ok = s.Get(KeyNetRevenue)
	assert.False(t, ok)
}

func TestLayered_FirstHitWins(t *testing.T) {
	l := Layered{
		nil,
		Settings{KeySingleRequest: "true"},
		Settings{KeySingleRequest: "false", KeyPageURL: "http://fallback.com"},
	}

	assert.Equal(t, "true", String(l, KeySingleRequest))
	assert.Equal(t, "http://fallback.com", String(l, KeyPageURL))
	assert.Equal(t, "", String(l, KeyDigiTrustID))
}

func TestBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"1", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"yes", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, Bool(Settings{KeyNetRevenue: tt.value}, KeyNetRevenue))
		})
	}

	assert.False(t, Bool(nil, KeyNetRevenue))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FASTLANE_PAGE_URL", "https://pub.example/page")
	t.Setenv("FASTLANE_SINGLE_REQUEST", "true")
	t.Setenv("FASTLANE_NET_REVENUE", "")

	s := FromEnv()

	assert.Equal(t, "https://pub.example/page", s[KeyPageURL])
	assert.Equal(t, "true", s[KeySingleRequest])
	_, ok := s[KeyNetRevenue]
	assert.False(t, ok)
}
