package web

import "go.uber.org/fx"

// Module provides the server-rendered pages and the HTML forbidden page.
var Module = fx.Module("web",
	fx.Provide(NewSiteContext),
	fx.Provide(NewForbiddenPage),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
