package appellations

import "go.uber.org/fx"

// Services provides the repository and service without HTTP routes.
var Services = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(NewService),
)

// Module provides the appellations domain
var Module = fx.Module("appellations",
	Services,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
