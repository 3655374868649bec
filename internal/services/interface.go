package services

import (
	"context"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/models"
)

// BadgeClient is the outbound contract to the remote badge service,
// implemented by badgeclient.Client and by test doubles.
type BadgeClient interface {
	ListBadges(ctx context.Context, collection string) ([]badgeclient.RemoteBadge, error)
	ListUserBadgeIDs(ctx context.Context, username string) ([]int64, error)
	IssueBadge(ctx context.Context, badgeID int64, recipient string) (*badgeclient.IssueResult, error)
	CreateBadge(ctx context.Context, req *badgeclient.CreateBadgeRequest) (int64, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}

// SyncService reconciles the local prototype mirror against the remote badge
// service.
type SyncService interface {
	// Sync fetches the remote badge set and applies inserts, updates and
	// soft-deletes to the local mirror. A not-configured integration is a
	// no-op, not an error.
	Sync(ctx context.Context) (*models.SyncResult, error)
}

// IssueService drains the issuance queue against the remote badge service.
type IssueService interface {
	// Drain processes queued issuance tasks, scoped to one issued record
	// when issuedID > 0, the whole queue otherwise. Returns the number of
	// tasks processed. Safe to run concurrently with itself; every attempt
	// re-derives task state from storage before mutating.
	Drain(ctx context.Context, issuedID int64) (int, error)
}

// BadgeAwardedEvent is the inbound host trigger payload.
type BadgeAwardedEvent struct {
	IssuedID          int64 `json:"issued_id" validate:"required,gt=0"`
	BadgeDefinitionID int64 `json:"badge_definition_id" validate:"required,gt=0"`
	UserID            int64 `json:"user_id" validate:"required,gt=0"`
}

// AwardService consumes host-side badge award events.
type AwardService interface {
	// HandleBadgeAwarded deduplicates the event, upserts an issuance task
	// and drains it inline. Duplicate awards are absorbed as no-op success.
	HandleBadgeAwarded(ctx context.Context, event *BadgeAwardedEvent) error
}

// CreatePrototypeRequest carries the fields for creating a badge remotely
// and mirroring it locally.
type CreatePrototypeRequest struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Requirements string `json:"requirements"`
	Hint         string `json:"hint"`
	Collection   string `json:"collection" validate:"required"`
	Level        string `json:"level" validate:"required,oneof=bronze silver gold"`
	Status       string `json:"status" validate:"omitempty,oneof=live draft"`
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
}

// BindInstanceRequest binds a prototype to a concrete host badge record.
type BindInstanceRequest struct {
	PrototypeID int64 `json:"prototype_id" validate:"required,gt=0"`
	HostBadgeID int64 `json:"host_badge_id" validate:"required,gt=0"`
}

// BindInstanceResult is the created binding plus the downloaded badge image
// for the host to attach to its badge record.
type BindInstanceResult struct {
	Instance *models.Instance `json:"instance"`
	Image    []byte           `json:"-"`
}

// BadgeService covers prototype management around the sync and issue loops:
// remote creation, instance binding and read-side listings.
type BadgeService interface {
	CreatePrototype(ctx context.Context, req *CreatePrototypeRequest) (*models.Prototype, error)
	BindInstance(ctx context.Context, req *BindInstanceRequest) (*BindInstanceResult, error)
	ListAvailablePrototypes(ctx context.Context, courseID int64) ([]*models.Prototype, error)
	QueueOverview(ctx context.Context) (*models.QueueOverview, error)
}
