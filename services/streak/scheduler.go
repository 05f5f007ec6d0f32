package streak

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"questboard/internal/config"
	"questboard/pkg/taskname"
)

// Scheduler enqueues the sweep on a cron schedule. The worker pool does the
// actual sweeping so a slow sweep never blocks the scheduler tick.
type Scheduler struct {
	cron   *cron.Cron
	client *asynq.Client
	cfg    *config.Config
}

func NewScheduler(client *asynq.Client, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		client: client,
		cfg:    cfg,
	}
}

// StartScheduler registers the cron on the application lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) error {
	_, err := s.cron.AddFunc(s.cfg.Sweeper.Schedule, s.enqueueSweep)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			zap.L().Info("streak sweep scheduled",
				zap.String("schedule", s.cfg.Sweeper.Schedule),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

func (s *Scheduler) enqueueSweep() {
	if _, err := s.client.Enqueue(asynq.NewTask(taskname.StreakSweep, nil), asynq.Queue("default")); err != nil {
		zap.L().Error("failed to enqueue streak sweep", zap.Error(err))
	}
}
