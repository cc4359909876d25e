package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/exchange"
)

// ServerConfig holds all server configuration
type ServerConfig struct {
	// Server
	Port                  string
	Timeout               time.Duration
	MaxConcurrentRequests int

	// Fastlane
	FastlaneEndpoint string
	VideoEndpoint    string
	SyncURL          string

	// Settings sources
	RedisURL          string
	SettingsNamespace string
	DatabaseConfig    *DatabaseConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ParseConfig parses configuration from args with environment variable
// fallbacks
func ParseConfig(args []string) (*ServerConfig, error) {
	fs := flag.NewFlagSet("fastlane", flag.ContinueOnError)

	port := fs.String("port", getEnvOrDefault("FASTLANE_PORT", "8000"), "Server port")
	timeout := fs.Duration("timeout", getEnvDurationOrDefault("FASTLANE_TIMEOUT", config.DefaultAuctionTimeout), "Default auction timeout")
	concurrency := fs.Int("max-concurrent-requests", getEnvIntOrDefault("FASTLANE_MAX_CONCURRENT_REQUESTS", config.DefaultMaxConcurrentRequests), "Wire requests in flight per auction (0 = unlimited)")
	endpoint := fs.String("fastlane-endpoint", getEnvOrDefault("FASTLANE_ENDPOINT", config.FastlaneEndpoint), "Fastlane display endpoint")
	videoEndpoint := fs.String("video-endpoint", getEnvOrDefault("FASTLANE_VIDEO_ENDPOINT", config.VideoEndpoint), "Fastlane video endpoint")
	syncURL := fs.String("sync-url", getEnvOrDefault("FASTLANE_SYNC_URL", config.SyncEndpoint), "User sync iframe URL")
	redisURL := fs.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for settings")
	namespace := fs.String("settings-namespace", getEnvOrDefault("FASTLANE_SETTINGS_NAMESPACE", "default"), "Postgres settings namespace")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		Port:                  *port,
		Timeout:               *timeout,
		MaxConcurrentRequests: *concurrency,
		FastlaneEndpoint:      *endpoint,
		VideoEndpoint:         *videoEndpoint,
		SyncURL:               *syncURL,
		RedisURL:              *redisURL,
		SettingsNamespace:     *namespace,
	}

	// Parse database config if DB_HOST is set
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.DatabaseConfig = &DatabaseConfig{
			Host:     dbHost,
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "fastlane"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "fastlane"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		}
	}

	return cfg, nil
}

// ToExchangeConfig converts ServerConfig to exchange.Config
func (c *ServerConfig) ToExchangeConfig() *exchange.Config {
	return &exchange.Config{
		DefaultTimeout:        c.Timeout,
		MaxConcurrentRequests: c.MaxConcurrentRequests,
		DefaultCurrency:       config.DefaultCurrency,
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as int or a default
func getEnvIntOrDefault(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDurationOrDefault accepts a Go duration ("750ms") or bare milliseconds
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
