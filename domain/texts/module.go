package texts

import "go.uber.org/fx"

// Services provides the repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewService),
)

// Module provides the texts domain
var Module = fx.Module("texts",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
