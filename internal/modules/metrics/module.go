package metrics

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"parity_bot/internal/modules/config"
)

func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			NewMetrics,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Metrics, cfg *config.Config, ctx context.Context) {
			var srv *http.Server
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					srv = m.Serve(ctx, cfg)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					if srv != nil {
						return srv.Shutdown(stopCtx)
					}
					return nil
				},
			})
		}),
	)
}
