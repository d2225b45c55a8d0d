// Package main provides the entry point for the Vogon API server
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/vogonweb/vogon/domain/appellations"
	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/giles"
	"github.com/vogonweb/vogon/domain/health"
	"github.com/vogonweb/vogon/domain/projects"
	"github.com/vogonweb/vogon/domain/relations"
	"github.com/vogonweb/vogon/domain/repositories"
	"github.com/vogonweb/vogon/domain/templates"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/domain/tracing"
	"github.com/vogonweb/vogon/domain/users"
	"github.com/vogonweb/vogon/domain/web"
	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/database"
	"github.com/vogonweb/vogon/internal/server"
	"github.com/vogonweb/vogon/internal/storage"
	"github.com/vogonweb/vogon/internal/tasks"
	"github.com/vogonweb/vogon/pkg/auth"
	"github.com/vogonweb/vogon/pkg/logger"
	"github.com/vogonweb/vogon/pkg/syshealth"
)

func main() {
	// .env.local overrides .env
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure
		logger.Module,
		config.Module,
		database.Module,
		tracing.Module,
		server.Module,
		tracing.EchoModule,
		storage.Module,
		syshealth.Module,

		// Task broker (publishing only; handlers run in cmd/worker)
		tasks.Module,

		auth.Module,

		// Domain modules
		health.Module,
		users.Module,
		repositories.Module,
		texts.Module,
		projects.Module,
		concepts.Module,
		appellations.Module,
		templates.Module,
		relations.Module,
		giles.Module,

		// Server-rendered pages and the HTML 403 page
		web.Module,
	).Run()
}
