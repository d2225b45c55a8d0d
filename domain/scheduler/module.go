package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/vogonweb/vogon/domain/relations"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/tasks"
)

// Module provides scheduled maintenance. It runs in the worker process.
var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

// TaskParams contains dependencies for creating scheduled tasks
type TaskParams struct {
	fx.In
	Scheduler *Scheduler
	Relations *relations.Service
	Queue     *tasks.Client
	Config    *config.Config
	Log       *slog.Logger
}

// RegisterTasks registers all scheduled tasks
func RegisterTasks(p TaskParams) error {
	cfg := p.Config.Scheduler
	if !cfg.Enabled {
		p.Log.Info("scheduler disabled, skipping task registration")
		return nil
	}

	requeue := NewRepresentationRequeueTask(p.Relations, cfg.PendingRepresentationAge, cfg.RequeueBatch, p.Log)
	if err := addScheduledTask(p.Scheduler, p.Log, "representation_requeue",
		cfg.RepresentationSchedule, cfg.RepresentationInterval, requeue.Run); err != nil {
		return err
	}

	trim := NewStreamTrimTask(p.Queue, p.Log)
	if err := addScheduledTask(p.Scheduler, p.Log, "stream_trim",
		cfg.StreamTrimSchedule, cfg.StreamTrimInterval, trim.Run); err != nil {
		return err
	}

	p.Log.Info("registered scheduled tasks", slog.Any("tasks", p.Scheduler.ListTasks()))
	return nil
}

// addScheduledTask uses the cron schedule when set, else the interval.
func addScheduledTask(s *Scheduler, log *slog.Logger, name, schedule string, interval time.Duration, task TaskFunc) error {
	if schedule != "" {
		return s.AddCronTask(name, schedule, task)
	}
	if interval <= 0 {
		log.Warn("scheduled task has no interval, skipping", slog.String("name", name))
		return nil
	}
	return s.AddIntervalTask(name, interval, task)
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *config.Config) {
	if !cfg.Scheduler.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
