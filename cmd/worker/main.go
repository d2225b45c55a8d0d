// Package main provides the entry point for the Vogon task worker. It
// consumes the task stream and runs the scheduled maintenance tasks.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/vogonweb/vogon/domain/appellations"
	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/giles"
	"github.com/vogonweb/vogon/domain/projects"
	"github.com/vogonweb/vogon/domain/relations"
	"github.com/vogonweb/vogon/domain/repositories"
	"github.com/vogonweb/vogon/domain/scheduler"
	"github.com/vogonweb/vogon/domain/templates"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/domain/tracing"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/database"
	"github.com/vogonweb/vogon/internal/tasks"
	"github.com/vogonweb/vogon/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		logger.Module,
		config.Module,
		database.Module,
		tracing.Module,

		tasks.Module,
		tasks.WorkerModule,

		// Services the task handlers depend on, without HTTP routes
		repositories.Services,
		texts.Services,
		projects.Services,
		concepts.Services,
		appellations.Services,
		templates.Services,

		// Task handlers, collected into the "tasks" group
		relations.TaskModule,
		giles.TaskModule,

		scheduler.Module,
	).Run()
}
