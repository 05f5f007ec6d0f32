package project

import "go.uber.org/fx"

var Module = fx.Module("service.project",
	fx.Provide(NewService),
)
