package scheduler

import (
	"context"
	"sync"
	"time"

	"badgerelay/internal/config"
	"badgerelay/internal/services"

	"go.uber.org/zap"
)

// Scheduler runs the periodic prototype sync and queue drain sweeps. It is
// the in-process replacement for an external cron: the award path drains
// inline, the sweeps mop up whatever that path left behind.
type Scheduler struct {
	cfg    config.SchedulerConfig
	sync   services.SyncService
	issuer services.IssueService
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(cfg config.SchedulerConfig, syncService services.SyncService, issuer services.IssueService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		sync:   syncService,
		issuer: issuer,
		logger: logger,
	}
}

// Start launches the background sweeps. No-op when disabled.
func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.loop(ctx, "prototype sync", s.cfg.SyncInterval, func(ctx context.Context) error {
		_, err := s.sync.Sync(ctx)
		return err
	})
	go s.loop(ctx, "queue drain", s.cfg.DrainInterval, func(ctx context.Context) error {
		_, err := s.issuer.Drain(ctx, 0)
		return err
	})

	s.logger.Info("Scheduler started",
		zap.Duration("sync_interval", s.cfg.SyncInterval),
		zap.Duration("drain_interval", s.cfg.DrainInterval),
	)
}

// Stop cancels the sweeps and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := run(ctx); err != nil {
				s.logger.Error("Scheduled sweep failed",
					zap.String("sweep", name),
					zap.Error(err),
				)
				continue
			}
			s.logger.Debug("Scheduled sweep completed",
				zap.String("sweep", name),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}
