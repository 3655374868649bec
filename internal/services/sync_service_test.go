package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/config"
	"badgerelay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBadgesConfig() config.BadgesConfig {
	return config.BadgesConfig{
		APIEndpoint:      "https://badges.example.com/api/v1",
		APIKey:           "secret",
		MaxRetryCount:    3,
		SuccessStatusMin: 200,
		SuccessStatusMax: 209,
	}
}

func remoteBadge(id int64, name string, modified time.Time) badgeclient.RemoteBadge {
	return badgeclient.RemoteBadge{
		ID:           id,
		Name:         name,
		Description:  name + " description",
		Image:        "https://img.example.com/" + name + ".png",
		CollectionID: json.Number("4"),
		Level:        "bronze",
		Status:       models.PrototypeStatusLive,
		CreatedAt:    modified.Add(-24 * time.Hour),
		UpdatedAt:    modified,
	}
}

func TestSyncNotConfigured(t *testing.T) {
	client := newFakeBadgeClient()
	protos := newFakePrototypeRepo()
	svc := NewSyncService(config.BadgesConfig{}, client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &models.SyncResult{}, result)
	assert.Empty(t, protos.protos)
}

func TestSyncInsertsNewBadges(t *testing.T) {
	now := time.Now()
	client := newFakeBadgeClient()
	client.badgesByCollection[""] = []badgeclient.RemoteBadge{
		remoteBadge(101, "explorer", now),
		remoteBadge(102, "builder", now),
	}
	protos := newFakePrototypeRepo()
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Deleted)

	stored := protos.byBadgeID(101)
	require.NotNil(t, stored)
	assert.Equal(t, "explorer", stored.Name)
	assert.Equal(t, "4", stored.Collection)
	assert.Equal(t, models.PrototypeStatusLive, stored.Status)
	assert.Equal(t, now.Unix(), stored.TimeModified)
}

func TestSyncSkipsBadgesWithPrerequisites(t *testing.T) {
	now := time.Now()
	gated := remoteBadge(103, "gated", now)
	gated.RequiredBadges = []int64{101}

	client := newFakeBadgeClient()
	client.badgesByCollection[""] = []badgeclient.RemoteBadge{
		remoteBadge(101, "explorer", now),
		gated,
	}
	protos := newFakePrototypeRepo()
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Nil(t, protos.byBadgeID(103))
}

func TestSyncUpdatesOnlyWhenRemoteIsNewer(t *testing.T) {
	now := time.Now()
	client := newFakeBadgeClient()
	client.badgesByCollection[""] = []badgeclient.RemoteBadge{remoteBadge(101, "explorer", now)}
	protos := newFakePrototypeRepo()
	require.NoError(t, protos.Create(context.Background(), &models.Prototype{
		BadgeID:      101,
		Name:         "old name",
		Status:       models.PrototypeStatusLive,
		TimeModified: now.Add(-time.Hour).Unix(),
		UserCreated:  7,
	}))
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	updated := protos.byBadgeID(101)
	assert.Equal(t, "explorer", updated.Name)
	assert.EqualValues(t, 7, updated.UserCreated, "audit columns survive updates")

	// A second run sees identical timestamps and changes nothing.
	result, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.SyncResult{}, result)
}

func TestSyncSoftDeletesAbsentBadges(t *testing.T) {
	client := newFakeBadgeClient()
	protos := newFakePrototypeRepo()
	require.NoError(t, protos.Create(context.Background(), &models.Prototype{
		BadgeID: 101,
		Name:    "retired",
		Status:  models.PrototypeStatusLive,
	}))
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, models.PrototypeStatusDeleted, protos.byBadgeID(101).Status)

	// Already-deleted rows are not counted again.
	result, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)
}

func TestSyncResurrectsDeletedBadge(t *testing.T) {
	now := time.Now()
	client := newFakeBadgeClient()
	client.badgesByCollection[""] = []badgeclient.RemoteBadge{remoteBadge(101, "explorer", now.Add(-time.Hour))}
	protos := newFakePrototypeRepo()
	require.NoError(t, protos.Create(context.Background(), &models.Prototype{
		BadgeID:      101,
		Name:         "explorer",
		Status:       models.PrototypeStatusDeleted,
		TimeModified: now.Unix(), // local copy is not older, resurrection still applies
	}))
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, models.PrototypeStatusLive, protos.byBadgeID(101).Status)
}

func TestSyncAbortsOnFetchFailure(t *testing.T) {
	client := newFakeBadgeClient()
	client.listErr = errors.New("connection refused")
	protos := newFakePrototypeRepo()
	require.NoError(t, protos.Create(context.Background(), &models.Prototype{
		BadgeID: 101,
		Status:  models.PrototypeStatusLive,
	}))
	svc := NewSyncService(testBadgesConfig(), client, protos, zap.NewNop())

	_, err := svc.Sync(context.Background())

	require.Error(t, err)
	assert.Equal(t, models.PrototypeStatusLive, protos.byBadgeID(101).Status,
		"a failed fetch must not soft-delete the mirror")
}

func TestSyncUnionsConfiguredCollections(t *testing.T) {
	now := time.Now()
	shared := remoteBadge(101, "explorer", now)

	client := newFakeBadgeClient()
	client.badgesByCollection["4"] = []badgeclient.RemoteBadge{shared, remoteBadge(102, "builder", now)}
	client.badgesByCollection["9"] = []badgeclient.RemoteBadge{shared, remoteBadge(103, "mentor", now)}

	cfg := testBadgesConfig()
	cfg.Collections = "4, 9"
	protos := newFakePrototypeRepo()
	svc := NewSyncService(cfg, client, protos, zap.NewNop())

	result, err := svc.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Created, "badges in both collections count once")
}
