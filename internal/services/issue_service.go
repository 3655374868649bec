package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/config"
	"badgerelay/internal/models"
	"badgerelay/internal/repositories"

	"go.uber.org/zap"
)

// issueService drains the issuance queue. All retry policy lives here; the
// badge client never retries on its own.
type issueService struct {
	cfg    config.BadgesConfig
	client BadgeClient
	tasks  repositories.TaskRepository
	logger *zap.Logger
}

// NewIssueService creates a new issue service.
func NewIssueService(cfg config.BadgesConfig, client BadgeClient, tasks repositories.TaskRepository, logger *zap.Logger) IssueService {
	return &issueService{
		cfg:    cfg,
		client: client,
		tasks:  tasks,
		logger: logger,
	}
}

// Drain processes every queued task (or just the one for issuedID). Each
// task is handled independently; one bad task never blocks the rest. The
// queue state is re-read from storage on every cycle, so a concurrent drain
// on the same task converges to the same terminal state.
func (s *issueService) Drain(ctx context.Context, issuedID int64) (int, error) {
	if !s.cfg.IsConfigured() {
		s.logger.Info("Badge service not configured, skipping issuance drain")
		return 0, nil
	}

	items, err := s.tasks.GetQueue(ctx, issuedID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	s.logger.Info("Issuing badges via remote badge service", zap.Int("count", len(items)))

	for _, item := range items {
		s.processTask(ctx, item)
	}
	return len(items), nil
}

// processTask runs one issuance attempt. Outcomes:
//
//	missing username or badge ID  -> failed (terminal, retrying cannot fix it)
//	badge already held remotely   -> issued
//	transport failure             -> untouched, retried next cycle
//	confirmed by response         -> issued
//	404 from the remote           -> retry count incremented, failed at the cap
//	any other error               -> message recorded, status and count unchanged
func (s *issueService) processTask(ctx context.Context, item *models.QueueItem) {
	task := &item.IssuanceTask

	// Precondition checks. These indicate broken foreign data, so the task
	// fails immediately rather than burning retries.
	if item.Username == "" {
		s.failTask(ctx, task, fmt.Sprintf("Username for issued badge %d does not exist.", task.IssuedID))
		return
	}
	if item.BadgeID == 0 {
		s.failTask(ctx, task, fmt.Sprintf("External badge ID for issued badge %d is not recorded.", task.IssuedID))
		return
	}

	// The user may already hold the badge through a channel outside the
	// host. That is a success, not a failure.
	issuedIDs, err := s.client.ListUserBadgeIDs(ctx, item.Username)
	if err != nil {
		s.logger.Warn("Could not check existing badges, leaving task queued",
			zap.Int64("issued_id", task.IssuedID),
			zap.Error(err),
		)
		return
	}
	for _, id := range issuedIDs {
		if id == item.BadgeID {
			task.Status = models.TaskStatusIssued
			task.Message = fmt.Sprintf("Badge %d already issued to %s outside the host.", item.BadgeID, item.Username)
			s.updateTask(ctx, task)
			s.logger.Info("Badge already issued externally",
				zap.Int64("badge_id", item.BadgeID),
				zap.String("username", item.Username),
			)
			return
		}
	}

	result, err := s.client.IssueBadge(ctx, item.BadgeID, item.Username)
	if err != nil {
		s.handleIssueError(ctx, task, item, err)
		return
	}

	// Confirm: the response carries the recipient's badge list, which must
	// now include the badge we just issued.
	for _, b := range result.Badges {
		if b.ID == item.BadgeID {
			task.Status = models.TaskStatusIssued
			task.Message = fmt.Sprintf("Badge %d issued to %s on %s.",
				item.BadgeID, item.Username, time.Now().Format(time.RFC1123Z))
			s.updateTask(ctx, task)
			s.logger.Info("Badge issued",
				zap.Int64("badge_id", item.BadgeID),
				zap.String("username", item.Username),
			)
			return
		}
	}

	// Structured response without our badge in it: record and retry later
	// without touching the retry budget.
	task.Message = fmt.Sprintf("Badge not issued. Badge %d missing from the returned badge list.", item.BadgeID)
	s.updateTask(ctx, task)
	s.logger.Warn("Badge issue not confirmed",
		zap.Int64("badge_id", item.BadgeID),
		zap.String("username", item.Username),
	)
}

// handleIssueError applies the retry policy. Only 404 responses count
// against the retry budget: "badge not yet visible remotely" is the one
// condition known to resolve (or not) on its own within a few sweeps. A
// transport failure mutates nothing at all, so the next cycle repeats the
// attempt from scratch.
func (s *issueService) handleIssueError(ctx context.Context, task *models.IssuanceTask, item *models.QueueItem, err error) {
	var apiErr *badgeclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind == badgeclient.ErrKindTransport {
		s.logger.Warn("Issue attempt failed in transport, leaving task queued",
			zap.Int64("issued_id", task.IssuedID),
			zap.Error(err),
		)
		return
	}

	task.Message = "Badge not issued. " + apiErr.Message
	if apiErr.IsNotFound() {
		if task.RetryCount >= s.cfg.MaxRetryCount {
			task.Status = models.TaskStatusFailed
		} else {
			task.RetryCount++
		}
	}
	s.updateTask(ctx, task)

	s.logger.Warn("Badge issue attempt unsuccessful",
		zap.Int64("issued_id", task.IssuedID),
		zap.Int64("badge_id", item.BadgeID),
		zap.String("username", item.Username),
		zap.Int("retry_count", task.RetryCount),
		zap.String("status", task.Status),
		zap.String("error", apiErr.Message),
	)
}

func (s *issueService) failTask(ctx context.Context, task *models.IssuanceTask, message string) {
	task.Status = models.TaskStatusFailed
	task.Message = message
	s.updateTask(ctx, task)
	s.logger.Error("Issuance task failed permanently",
		zap.Int64("issued_id", task.IssuedID),
		zap.String("message", message),
	)
}

func (s *issueService) updateTask(ctx context.Context, task *models.IssuanceTask) {
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("Failed to persist task state",
			zap.Int64("issued_id", task.IssuedID),
			zap.Error(err),
		)
	}
}
