package templates

import "go.uber.org/fx"

// Services provides the repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewService),
)

// Module provides the relation templates domain
var Module = fx.Module("templates",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
