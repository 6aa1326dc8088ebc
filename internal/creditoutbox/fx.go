package creditoutbox

import (
	"context"

	"github.com/smallbiznis/entitle/internal/creditoutbox/repository"
	"github.com/smallbiznis/entitle/internal/creditoutbox/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.outbox",
	fx.Provide(repository.Provide),
	fx.Provide(worker.New),
	fx.Invoke(StartWorker),
)

func StartWorker(lc fx.Lifecycle, w *worker.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go w.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
