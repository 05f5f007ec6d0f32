package ledger

import "go.uber.org/fx"

var Module = fx.Module("service.ledger",
	fx.Provide(NewService),
)
