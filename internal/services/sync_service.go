package services

import (
	"context"
	"fmt"
	"time"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/config"
	"badgerelay/internal/models"
	"badgerelay/internal/repositories"

	"go.uber.org/zap"
)

// syncService reconciles the local prototype mirror with the remote badge
// list.
type syncService struct {
	cfg    config.BadgesConfig
	client BadgeClient
	protos repositories.PrototypeRepository
	logger *zap.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(cfg config.BadgesConfig, client BadgeClient, protos repositories.PrototypeRepository, logger *zap.Logger) SyncService {
	return &syncService{
		cfg:    cfg,
		client: client,
		protos: protos,
		logger: logger,
	}
}

// Sync fetches the eligible remote badges, then walks the stored prototypes:
// records present remotely are updated in place when the remote copy is newer
// (or the local one was soft-deleted and needs resurrecting), records absent
// remotely are soft-deleted, and any remote badge not stored yet is inserted.
func (s *syncService) Sync(ctx context.Context) (*models.SyncResult, error) {
	if !s.cfg.IsConfigured() {
		s.logger.Info("Badge service not configured, skipping prototype sync")
		return &models.SyncResult{}, nil
	}

	s.logger.Info("Updating prototype mirror from remote badge service")

	fetched, err := s.fetchEligibleBadges(ctx)
	if err != nil {
		// An unreachable or misbehaving remote must not mutate the mirror:
		// soft-deleting everything because one fetch failed would be wrong.
		return nil, err
	}

	records, err := s.protos.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored prototypes: %w", err)
	}

	result := &models.SyncResult{}

	for _, record := range records {
		remote, ok := fetched[record.BadgeID]
		if ok {
			if remoteModified(remote) > record.TimeModified || record.Status == models.PrototypeStatusDeleted {
				updated := toPrototype(remote)
				updated.ID = record.ID
				if err := s.protos.Update(ctx, updated); err != nil {
					return nil, err
				}
				result.Updated++
			}
			delete(fetched, record.BadgeID)
			continue
		}

		// Absent remotely: soft-delete so existing instances keep resolving.
		if record.Status != models.PrototypeStatusDeleted {
			changed, err := s.protos.SoftDelete(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			if changed {
				result.Deleted++
			}
		}
	}

	// Whatever is left in the fetched set was never seen before.
	for _, remote := range fetched {
		if err := s.protos.Create(ctx, toPrototype(remote)); err != nil {
			return nil, err
		}
		result.Created++
	}

	s.logger.Info("Prototype sync completed",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
	)

	return result, nil
}

// fetchEligibleBadges retrieves the remote badge list, fanning out over the
// configured collections and unioning by badge ID. Badges with prerequisite
// badges are excluded entirely: prerequisite chains cannot be modeled here.
func (s *syncService) fetchEligibleBadges(ctx context.Context) (map[int64]badgeclient.RemoteBadge, error) {
	collections := s.cfg.CollectionIDs()
	if len(collections) == 0 {
		collections = []string{""}
	}

	fetched := make(map[int64]badgeclient.RemoteBadge)
	for _, collection := range collections {
		badges, err := s.client.ListBadges(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch remote badges (collection %q): %w", collection, err)
		}
		for _, b := range badges {
			if b.HasPrerequisites() {
				continue
			}
			fetched[b.ID] = b
		}
	}
	return fetched, nil
}

// toPrototype maps a remote badge onto the local mirror shape. The audit
// columns stay zero: inserts record the system, updates never touch them.
func toPrototype(b badgeclient.RemoteBadge) *models.Prototype {
	status := b.Status
	if status == "" {
		status = models.PrototypeStatusLive
	}
	return &models.Prototype{
		BadgeID:      b.ID,
		Name:         b.Name,
		Description:  b.Description,
		ImageURL:     b.Image,
		Requirements: b.Requirements,
		Hint:         b.Hint,
		Collection:   b.CollectionID.String(),
		Level:        b.Level,
		Status:       status,
		TimeCreated:  unixOrZero(b.CreatedAt),
		TimeModified: remoteModified(b),
	}
}

// remoteModified returns the remote modification time as a unix timestamp,
// falling back to the creation time when the badge was never modified.
func remoteModified(b badgeclient.RemoteBadge) int64 {
	if b.UpdatedAt.IsZero() {
		return unixOrZero(b.CreatedAt)
	}
	return b.UpdatedAt.Unix()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
