package ordering

import "go.uber.org/fx"

var Module = fx.Module("ordering",
	fx.Provide(NewRedisClient),
	fx.Provide(newLocker),
	fx.Provide(NewEngine),
)
