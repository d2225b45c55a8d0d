package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/logger"
	"github.com/vogonweb/vogon/pkg/syshealth"
)

// Module provides the broker connection and the publishing client.
var Module = fx.Module("tasks",
	fx.Provide(
		NewRedisClient,
		fx.Annotate(NewRedisBroker, fx.As(new(Broker))),
		NewClient,
	),
)

// WorkerModule adds the handler registry and the consuming worker.
var WorkerModule = fx.Module("tasks.worker",
	syshealth.Module,
	fx.Provide(
		NewRegistry,
		func(b Broker, r *Registry, s *syshealth.Scaler, cfg *config.Config, log *slog.Logger) *Worker {
			return NewWorker(b, r, cfg, log).WithSizer(s)
		},
	),
	fx.Invoke(RegisterWorkerLifecycle),
)

// NewRedisClient connects to REDIS_URL.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	log = log.With(logger.Scope("tasks.redis"))

	opts, err := redis.ParseURL(cfg.Tasks.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warn("redis not reachable at startup", slog.String("addr", opts.Addr), logger.Error(err))
				return nil
			}
			log.Info("connected to redis", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb, nil
}

// RegisterWorkerLifecycle starts and stops the worker with the application.
func RegisterWorkerLifecycle(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: w.Start,
		OnStop:  w.Stop,
	})
}
