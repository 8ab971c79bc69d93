package strategy

import (
	"context"

	"go.uber.org/fx"

	"parity_bot/internal/models"
	feedsvc "parity_bot/internal/modules/binance_feed/service"
	"parity_bot/internal/modules/strategy/service"
	"parity_bot/pkg/logger"
)

func newSignalsChan() chan models.Signal {
	return make(chan models.Signal, 4096)
}
func asSendOnlySignals(ch chan models.Signal) chan<- models.Signal { return ch }
func asRecvOnlySignals(ch chan models.Signal) <-chan models.Signal { return ch }

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newSignalsChan,
			asSendOnlySignals,
			asRecvOnlySignals,
			service.NewEngine, // *service.Engine
			service.NewHub,    // *service.Hub
		),

		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub, bars <-chan feedsvc.BarClose, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						logger.Info("strategy hub loop started")
						for {
							select {
							case <-ctx.Done():
								logger.Info("strategy hub loop stopped")
								return
							case bc, ok := <-bars:
								if !ok {
									logger.Warn("bar close channel closed")
									return
								}
								hub.OnBarClose(ctx, bc)
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
