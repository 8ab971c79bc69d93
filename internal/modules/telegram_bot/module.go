package telegram

import (
	"context"

	"go.uber.org/fx"

	"parity_bot/internal/modules/config"
	strategysvc "parity_bot/internal/modules/strategy/service"
	"parity_bot/internal/modules/telegram_bot/service"
	"parity_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// Нотифайер: телеграм если включён, иначе stdout.
		fx.Provide(
			func(cfg *config.Config) (service.Notifier, error) {
				if !cfg.Telegram.Enabled {
					return service.Stdout{}, nil
				}
				return service.NewTelegram(cfg)
			},
		),

		// Адаптеры под узкие интерфейсы потребителей.
		fx.Provide(
			func(n service.Notifier) runner.Notifier { return n },
			func(n service.Notifier) strategysvc.ServiceNotifier { return n },
		),

		fx.Invoke(func(lc fx.Lifecycle, n service.Notifier, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					if tg, ok := n.(*service.Telegram); ok {
						tg.Startup(ctx)
					}
					return nil
				},
			})
		}),
	)
}
