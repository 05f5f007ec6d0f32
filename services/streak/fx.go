package streak

import "go.uber.org/fx"

var Module = fx.Module("service.streak",
	fx.Provide(
		NewService,
		NewTask,
		NewScheduler,
	),
	fx.Invoke(StartScheduler),
)
