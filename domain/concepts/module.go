package concepts

import "go.uber.org/fx"

// Services provides the repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewService),
)

// Module provides the concepts domain
var Module = fx.Module("concepts",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
