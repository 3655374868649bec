package services

import (
	"badgerelay/internal/cache"
	"badgerelay/internal/config"
	"badgerelay/internal/database"
	"badgerelay/internal/repositories"

	"go.uber.org/zap"
)

// ServiceCollection holds the wired services and their shared infrastructure.
type ServiceCollection struct {
	SyncService  SyncService  `json:"-"`
	IssueService IssueService `json:"-"`
	AwardService AwardService `json:"-"`
	BadgeService BadgeService `json:"-"`

	Protos    repositories.PrototypeRepository `json:"-"`
	Instances repositories.InstanceRepository  `json:"-"`
	Tasks     repositories.TaskRepository      `json:"-"`

	Cache     cache.Cache       `json:"-"`
	Client    BadgeClient       `json:"-"`
	Logger    *zap.Logger       `json:"-"`
	Config    *config.Config    `json:"-"`
	DBManager *database.Manager `json:"-"`
}

// NewServiceCollection builds the repositories and services on top of the
// shared database manager, cache and badge client.
func NewServiceCollection(
	cfg *config.Config,
	db *database.Manager,
	c cache.Cache,
	client BadgeClient,
	logger *zap.Logger,
) *ServiceCollection {
	protos := repositories.NewPrototypeRepository(db, logger)
	instances := repositories.NewInstanceRepository(db, logger)
	tasks := repositories.NewTaskRepository(db, logger)

	issueService := NewIssueService(cfg.Badges, client, tasks, logger)

	return &ServiceCollection{
		SyncService:  NewSyncService(cfg.Badges, client, protos, logger),
		IssueService: issueService,
		AwardService: NewAwardService(instances, tasks, issueService, logger),
		BadgeService: NewBadgeService(cfg.Badges, client, protos, instances, tasks, c, logger),

		Protos:    protos,
		Instances: instances,
		Tasks:     tasks,

		Cache:     c,
		Client:    client,
		Logger:    logger,
		Config:    cfg,
		DBManager: db,
	}
}
