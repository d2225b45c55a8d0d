package syshealth

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/config"
)

var Module = fx.Module("syshealth",
	fx.Provide(
		func(db *bun.DB, log *slog.Logger) Monitor { return NewMonitor(DefaultConfig(), db, log) },
		func(m Monitor, cfg *config.Config) *Scaler { return NewScaler(m, 1, cfg.Tasks.BatchSize) },
	),
	fx.Invoke(func(lc fx.Lifecycle, m Monitor) {
		lc.Append(fx.StartStopHook(m.Start, m.Stop))
	}),
)
