package task

import "go.uber.org/fx"

var Module = fx.Module("service.task",
	fx.Provide(NewService),
)
