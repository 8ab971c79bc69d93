package binance_feed

import (
	"context"

	"go.uber.org/fx"

	"parity_bot/internal/modules/binance_feed/service"
	"parity_bot/internal/modules/config"
)

func newBarCloseChan() chan service.BarClose {
	return make(chan service.BarClose, 1024)
}
func asSendOnlyBarClose(ch chan service.BarClose) chan<- service.BarClose { return ch }
func asRecvOnlyBarClose(ch chan service.BarClose) <-chan service.BarClose { return ch }

func Module() fx.Option {
	return fx.Module("binance_feed",
		fx.Provide(
			newBarCloseChan,
			asSendOnlyBarClose,
			asRecvOnlyBarClose,
			service.NewClient,
			service.NewGate,
			service.NewPoller,
			service.NewStreamer,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			poller *service.Poller,
			streamer *service.Streamer,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					if cfg.Feed.Transport == "ws" {
						go streamer.Run(ctx)
					} else {
						go poller.Run(ctx)
					}
					return nil
				},
			})
		}),
	)
}
