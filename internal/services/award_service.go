package services

import (
	"context"
	"fmt"

	"badgerelay/internal/repositories"

	"go.uber.org/zap"
)

// awardService consumes host-side "badge awarded" events: it decides whether
// the award maps to a mirrored prototype, guards against duplicate awards of
// the same prototype, queues the issuance and drains it inline.
type awardService struct {
	instances repositories.InstanceRepository
	tasks     repositories.TaskRepository
	issuer    IssueService
	logger    *zap.Logger
}

// NewAwardService creates a new award service.
func NewAwardService(instances repositories.InstanceRepository, tasks repositories.TaskRepository, issuer IssueService, logger *zap.Logger) AwardService {
	return &awardService{
		instances: instances,
		tasks:     tasks,
		issuer:    issuer,
		logger:    logger,
	}
}

// HandleBadgeAwarded processes one award event. Events for host badges that
// are not bound to a prototype are ignored. An award of a prototype already
// queued or issued to the same user through a different instance is a no-op:
// the user must not end up with the same remote badge twice. Otherwise the
// task is upserted as queued and drained immediately so the common case is
// visible without waiting for the scheduled sweep.
func (s *awardService) HandleBadgeAwarded(ctx context.Context, event *BadgeAwardedEvent) error {
	protoID, err := s.instances.GetProtoID(ctx, event.BadgeDefinitionID)
	if err != nil {
		return fmt.Errorf("failed to resolve instance binding: %w", err)
	}
	if protoID == 0 {
		// Not every host badge is backed by a prototype.
		return nil
	}

	duplicate, err := s.tasks.HasActiveForPrototype(ctx, protoID, event.UserID, event.IssuedID, event.BadgeDefinitionID)
	if err != nil {
		return fmt.Errorf("failed to check duplicate award: %w", err)
	}
	if duplicate {
		s.logger.Info("Prototype already queued or issued to user, absorbing duplicate award",
			zap.Int64("proto_id", protoID),
			zap.Int64("user_id", event.UserID),
			zap.Int64("issued_id", event.IssuedID),
		)
		return nil
	}

	queued, err := s.tasks.Enqueue(ctx, event.IssuedID)
	if err != nil {
		return fmt.Errorf("failed to enqueue issuance task: %w", err)
	}
	if !queued {
		// Already issued; nothing to do.
		return nil
	}

	// Inline drain for latency. A failure here is not an event failure: the
	// task stays queued and the scheduled sweep picks it up.
	if _, err := s.issuer.Drain(ctx, event.IssuedID); err != nil {
		s.logger.Error("Inline drain failed, task remains queued for the scheduled sweep",
			zap.Int64("issued_id", event.IssuedID),
			zap.Error(err),
		)
	}

	return nil
}
