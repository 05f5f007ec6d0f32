package gamification

import "go.uber.org/fx"

var Module = fx.Module("service.gamification",
	fx.Provide(NewService),
)
