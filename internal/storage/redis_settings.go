package storage

import (
	"context"
	"fmt"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// HashClient is the subset of the Redis client used for settings
type HashClient interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// RedisSettings reads settings from a Redis hash
type RedisSettings struct {
	client   HashClient
	key      string
	recorder LoadRecorder
}

// NewRedisSettings creates a store on the hash key, or the default settings
// hash when key is empty
func NewRedisSettings(client HashClient, key string) *RedisSettings {
	if key == "" {
		key = config.RedisSettingsKey
	}
	return &RedisSettings{client: client, key: key}
}

// SetRecorder attaches a load observer
func (r *RedisSettings) SetRecorder(rec LoadRecorder) {
	r.recorder = rec
}

// Load returns every field of the settings hash
func (r *RedisSettings) Load(ctx context.Context) (config.Settings, error) {
	fields, err := r.client.HGetAll(ctx, r.key)
	if err != nil {
		err = fmt.Errorf("failed to read settings hash %s: %w", r.key, err)
	}
	if r.recorder != nil {
		r.recorder.RecordSettingsLoad(SourceRedis, err)
	}
	if err != nil {
		return nil, err
	}

	logger.Storage().Debug().
		Str("source", SourceRedis).
		Str("key", r.key).
		Int("keys", len(fields)).
		Msg("settings loaded")
	return config.Settings(fields), nil
}
