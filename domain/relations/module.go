package relations

import (
	"go.uber.org/fx"

	"github.com/vogonweb/vogon/internal/tasks"
)

// Services provides the repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewService),
)

// Module provides the relation sets domain for the API server
var Module = fx.Module("relations",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// TaskModule registers the representation refresh task on the worker.
var TaskModule = fx.Module("relations.tasks",
	Services,
	fx.Provide(tasks.AsHandler(NewRefreshHandler)),
)
