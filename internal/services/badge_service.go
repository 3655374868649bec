package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/cache"
	"badgerelay/internal/config"
	"badgerelay/internal/models"
	"badgerelay/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	cacheKeyQueueOverview = "badgerelay:queue:overview"
	cacheKeyAvailable     = "badgerelay:prototypes:available:%d"

	overviewTTL  = 30 * time.Second
	availableTTL = 60 * time.Second
)

// badgeService covers prototype management around the sync and issue loops.
type badgeService struct {
	cfg       config.BadgesConfig
	client    BadgeClient
	protos    repositories.PrototypeRepository
	instances repositories.InstanceRepository
	tasks     repositories.TaskRepository
	cache     cache.Cache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBadgeService creates a new badge service.
func NewBadgeService(
	cfg config.BadgesConfig,
	client BadgeClient,
	protos repositories.PrototypeRepository,
	instances repositories.InstanceRepository,
	tasks repositories.TaskRepository,
	c cache.Cache,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		cfg:       cfg,
		client:    client,
		protos:    protos,
		instances: instances,
		tasks:     tasks,
		cache:     c,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreatePrototype creates the badge on the remote service first, then mirrors
// it locally. The remote stays the source of truth: the local row records the
// remote badge ID and the next sync reconciles any drift.
func (s *badgeService) CreatePrototype(ctx context.Context, req *CreatePrototypeRequest) (*models.Prototype, error) {
	if !s.cfg.IsConfigured() {
		return nil, NewConfigurationError("badge service endpoint or API key not configured")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("invalid prototype request", err)
	}

	status := req.Status
	if status == "" {
		status = models.PrototypeStatusLive
	}

	create := &badgeclient.CreateBadgeRequest{
		Name:         req.Name,
		Description:  req.Description,
		Requirements: req.Requirements,
		Hint:         req.Hint,
		CollectionID: req.Collection,
		Level:        req.Level,
		Status:       status,
	}
	// Only bronze badges may auto-issue on the remote side; higher levels
	// are gated behind manual review there.
	if req.Level != "bronze" {
		autoIssue := false
		create.AutoIssue = &autoIssue
	}

	badgeID, err := s.client.CreateBadge(ctx, create)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	proto := &models.Prototype{
		BadgeID:      badgeID,
		Name:         req.Name,
		Description:  req.Description,
		Requirements: req.Requirements,
		Hint:         req.Hint,
		Collection:   req.Collection,
		Level:        req.Level,
		Status:       status,
		TimeCreated:  now,
		TimeModified: now,
		UserCreated:  req.UserID,
		UserModified: req.UserID,
	}
	if err := s.protos.Create(ctx, proto); err != nil {
		// The remote badge exists but the mirror insert failed. The next
		// sync picks the badge up, so report the storage error as-is.
		return nil, err
	}

	s.invalidateListings(ctx)

	s.logger.Info("Prototype created",
		zap.Int64("badge_id", badgeID),
		zap.String("name", req.Name),
		zap.String("level", req.Level),
	)
	return proto, nil
}

// BindInstance binds a live prototype to a concrete host badge record and
// returns the remote badge image for the host to attach. The image download
// is part of the binding: a badge without its artwork is not usable on the
// host side, so a download failure fails the whole operation.
func (s *badgeService) BindInstance(ctx context.Context, req *BindInstanceRequest) (*BindInstanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("invalid binding request", err)
	}

	proto, err := s.protos.GetByID(ctx, req.PrototypeID)
	if err != nil {
		return nil, err
	}
	if proto == nil {
		return nil, NewNotFoundError(fmt.Sprintf("prototype %d not found", req.PrototypeID))
	}
	if proto.Status != models.PrototypeStatusLive {
		return nil, NewValidationError(fmt.Sprintf("prototype %d is %s, only live prototypes can be bound", proto.ID, proto.Status), nil)
	}

	bound, err := s.instances.GetProtoID(ctx, req.HostBadgeID)
	if err != nil {
		return nil, err
	}
	if bound != 0 {
		return nil, NewValidationError(fmt.Sprintf("host badge %d is already bound to prototype %d", req.HostBadgeID, bound), nil)
	}

	image, err := s.client.DownloadImage(ctx, proto.ImageURL)
	if err != nil {
		return nil, NewTransportError(fmt.Sprintf("failed to download badge image for prototype %d", proto.ID), err)
	}

	instance := &models.Instance{
		ProtoID:    proto.ID,
		InstanceID: req.HostBadgeID,
	}
	if err := s.instances.Create(ctx, instance); err != nil {
		return nil, err
	}

	s.invalidateListings(ctx)

	s.logger.Info("Prototype bound to host badge",
		zap.Int64("proto_id", proto.ID),
		zap.Int64("host_badge_id", req.HostBadgeID),
	)
	return &BindInstanceResult{Instance: instance, Image: image}, nil
}

// ListAvailablePrototypes lists live prototypes not yet bound within the
// given course scope. Results are cached briefly; bindings invalidate.
func (s *badgeService) ListAvailablePrototypes(ctx context.Context, courseID int64) ([]*models.Prototype, error) {
	key := fmt.Sprintf(cacheKeyAvailable, courseID)
	if data, ok := s.cache.Get(ctx, key); ok {
		var protos []*models.Prototype
		if err := json.Unmarshal(data, &protos); err == nil {
			return protos, nil
		}
	}

	protos, err := s.protos.ListAvailable(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(protos); err == nil {
		if err := s.cache.Set(ctx, key, data, availableTTL); err != nil {
			s.logger.Warn("Failed to cache available prototypes", zap.Error(err))
		}
	}
	return protos, nil
}

// QueueOverview returns queue counts by status, cached briefly.
func (s *badgeService) QueueOverview(ctx context.Context) (*models.QueueOverview, error) {
	if data, ok := s.cache.Get(ctx, cacheKeyQueueOverview); ok {
		var overview models.QueueOverview
		if err := json.Unmarshal(data, &overview); err == nil {
			return &overview, nil
		}
	}

	overview, err := s.tasks.Overview(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(overview); err == nil {
		if err := s.cache.Set(ctx, cacheKeyQueueOverview, data, overviewTTL); err != nil {
			s.logger.Warn("Failed to cache queue overview", zap.Error(err))
		}
	}
	return overview, nil
}

func (s *badgeService) invalidateListings(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKeyQueueOverview); err != nil {
		s.logger.Warn("Failed to invalidate overview cache", zap.Error(err))
	}
	// Course-scoped listing keys expire on their own TTL; only the common
	// unscoped key is invalidated eagerly.
	if err := s.cache.Delete(ctx, fmt.Sprintf(cacheKeyAvailable, int64(0))); err != nil {
		s.logger.Warn("Failed to invalidate listing cache", zap.Error(err))
	}
}
