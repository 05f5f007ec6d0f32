package achievement

import "go.uber.org/fx"

var Module = fx.Module("service.achievement",
	fx.Provide(
		NewEvaluator,
		NewService,
		NewTask,
		NewDispatcher,
	),
)
