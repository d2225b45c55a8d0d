package giles

import (
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/tasks"
)

// Services provides the client, repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewClient),
	fx.Provide(NewService),
)

// Module provides the Giles integration for the API server
var Module = fx.Module("giles",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// TaskModule registers the upload import task on the worker.
var TaskModule = fx.Module("giles.tasks",
	Services,
	fx.Provide(tasks.AsHandler(NewImportHandler)),
)
