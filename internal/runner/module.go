package runner

import (
	"context"

	"go.uber.org/fx"

	"parity_bot/internal/models"
	feedsvc "parity_bot/internal/modules/binance_feed/service"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewRouter, // *Router
			func(c *feedsvc.Client) KlineSource { return c },
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			r *Router,
			sigs <-chan models.Signal,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						for {
							select {
							case <-ctx.Done():
								return
							case sig := <-sigs:
								r.OnSignal(ctx, sig)
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
