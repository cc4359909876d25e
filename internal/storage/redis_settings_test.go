package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/redis"
)

func newRedisSettings(t *testing.T, key string) (*miniredis.Miniredis, *RedisSettings) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisSettings(client, key)
}

func TestRedisSettings_Load(t *testing.T) {
	mr, store := newRedisSettings(t, "")
	rec := &recordingLoads{}
	store.SetRecorder(rec)

	mr.HSet(config.RedisSettingsKey, config.KeyNetRevenue, "true")
	mr.HSet(config.RedisSettingsKey, config.KeyPageURL, "https://example.com/a")

	settings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, config.Bool(settings, config.KeyNetRevenue))
	assert.Equal(t, "https://example.com/a", config.String(settings, config.KeyPageURL))
	assert.Equal(t, []loadCall{{SourceRedis, nil}}, rec.calls)
}

func TestRedisSettings_LoadMissingHash(t *testing.T) {
	_, store := newRedisSettings(t, "fastlane:other")

	settings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestRedisSettings_LoadServerDown(t *testing.T) {
	mr, store := newRedisSettings(t, "")
	rec := &recordingLoads{}
	store.SetRecorder(rec)
	mr.Close()

	settings, err := store.Load(context.Background())
	assert.Nil(t, settings)
	assert.ErrorContains(t, err, config.RedisSettingsKey)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, SourceRedis, rec.calls[0].source)
	assert.Error(t, rec.calls[0].err)
}

func TestRedisSettings_Layered(t *testing.T) {
	mr, store := newRedisSettings(t, "")
	mr.HSet(config.RedisSettingsKey, config.KeyPageURL, "https://redis.example")

	fromRedis, err := store.Load(context.Background())
	require.NoError(t, err)

	layered := config.Layered{
		config.Settings{config.KeyPageURL: "https://env.example"},
		fromRedis,
		config.Settings{config.KeyNetRevenue: "true"},
	}
	assert.Equal(t, "https://env.example", config.String(layered, config.KeyPageURL))
	assert.True(t, config.Bool(layered, config.KeyNetRevenue))
}
