package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "production") // skip .env files
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/badgerelay?sslmode=disable")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Badges.MaxRetryCount)
	assert.Equal(t, 10*time.Second, cfg.Badges.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Badges.ImageTimeout)
	assert.Equal(t, 200, cfg.Badges.SuccessStatusMin)
	assert.Equal(t, 209, cfg.Badges.SuccessStatusMax)
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.SyncInterval)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.DrainInterval)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()

	require.Error(t, err)
}

func TestLoadTrimsEndpointSlash(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/badgerelay?sslmode=disable")
	t.Setenv("BADGES_API_ENDPOINT", "https://badges.example.com/api/v1/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://badges.example.com/api/v1", cfg.Badges.APIEndpoint)
}

func TestValidateRejectsInvertedSuccessRange(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/badgerelay?sslmode=disable")
	t.Setenv("BADGES_SUCCESS_STATUS_MIN", "300")
	t.Setenv("BADGES_SUCCESS_STATUS_MAX", "200")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted")
}

func TestValidateRejectsUnknownCacheProvider(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/badgerelay?sslmode=disable")
	t.Setenv("CACHE_PROVIDER", "memcached")

	_, err := Load()

	require.Error(t, err)
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, BadgesConfig{}.IsConfigured())
	assert.False(t, BadgesConfig{APIEndpoint: "https://badges.example.com"}.IsConfigured())
	assert.False(t, BadgesConfig{APIKey: "secret"}.IsConfigured())
	assert.True(t, BadgesConfig{APIEndpoint: "https://badges.example.com", APIKey: "secret"}.IsConfigured())
}

func TestCollectionIDs(t *testing.T) {
	assert.Nil(t, BadgesConfig{}.CollectionIDs())
	assert.Nil(t, BadgesConfig{Collections: "  "}.CollectionIDs())
	assert.Equal(t, []string{"4"}, BadgesConfig{Collections: "4"}.CollectionIDs())
	assert.Equal(t, []string{"4", "9", "12"}, BadgesConfig{Collections: " 4, 9 ,,12 "}.CollectionIDs())
}
