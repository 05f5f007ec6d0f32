package tier

import "go.uber.org/fx"

var Module = fx.Module("service.tier",
	fx.Provide(NewService),
)
