package repositories

import "go.uber.org/fx"

// Services provides the store and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(NewService),
)

// Module provides the text repositories domain
var Module = fx.Module("repositories",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
