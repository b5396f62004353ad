package trackedaccount

import (
	"go.uber.org/fx"
)

var Module = fx.Module("tracked_account_repository",
	fx.Provide(
		fx.Annotate(
			NewPgxRepository,
			fx.As(new(Repository)),
		),
	),
)
