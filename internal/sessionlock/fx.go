package sessionlock

import "go.uber.org/fx"

var Module = fx.Module("session.lock",
	fx.Provide(NewSessionLocker),
)
