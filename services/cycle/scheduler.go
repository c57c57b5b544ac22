package cycle

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/task"
)

type Scheduler struct {
	enqueuer task.Enqueuer
	config   *config.Config
}

func NewScheduler(enqueuer task.Enqueuer, cfg *config.Config) *Scheduler {
	return &Scheduler{enqueuer: enqueuer, config: cfg}
}

// StartScheduler wires the daily loop to the fx lifecycle.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, c := context.WithCancel(context.Background())
			cancel = c
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started checklist generation scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, s.config.Checklist.SchedulerHour, s.config.Checklist.SchedulerMinute)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)
		select {
		case <-time.After(next.Sub(now)):
			s.runDaily(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	runDate := time.Now().UTC()
	zap.L().Info("[Scheduler] enqueueing daily generation job", zap.Time("run_date", runDate))

	if _, err := s.enqueuer.Enqueue(ctx, NewGenerateTask(runDate, "scheduler")); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue generation job", zap.Error(err))
	}
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
