package config

import (
	"os"
	"strconv"
)

// Store is a read-only key lookup for adapter settings
type Store interface {
	Get(key string) (string, bool)
}

// Settings is an in-memory Store
type Settings map[string]string

// Get implements Store
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Layered consults each store in order and returns the first hit
type Layered []Store

// Get implements Store
func (l Layered) Get(key string) (string, bool) {
	for _, s := range l {
		if s == nil {
			continue
		}
		if v, ok := s.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

// envKeys maps environment variables onto settings keys
var envKeys = map[string]string{
	"FASTLANE_PAGE_URL":       KeyPageURL,
	"FASTLANE_NET_REVENUE":    KeyNetRevenue,
	"FASTLANE_SINGLE_REQUEST": KeySingleRequest,
	"FASTLANE_DIGITRUST_ID":   KeyDigiTrustID,
}

// FromEnv builds Settings from FASTLANE_* environment variables
func FromEnv() Settings {
	s := Settings{}
	for env, key := range envKeys {
		if v := os.Getenv(env); v != "" {
			s[key] = v
		}
	}
	return s
}

// String returns the value for key, or "" when absent or store is nil
func String(s Store, key string) string {
	if s == nil {
		return ""
	}
	v, _ := s.Get(key)
	return v
}

// Bool reports whether key is set to a true value ("true", "1", ...)
func Bool(s Store, key string) bool {
	v := String(s, key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
