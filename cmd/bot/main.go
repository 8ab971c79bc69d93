package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"parity_bot/internal/modules/binance_feed"
	"parity_bot/internal/modules/config"
	"parity_bot/internal/modules/metrics"
	"parity_bot/internal/modules/strategy"
	telegram "parity_bot/internal/modules/telegram_bot"
	"parity_bot/internal/runner"
	"parity_bot/pkg/logger"
	"parity_bot/pkg/tracing"
)

func main() {
	app := fx.New(
		fx.Provide(
			func(lc fx.Lifecycle) context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						cancel()
						return nil
					},
				})
				return ctx
			},
		),
		config.Module(),
		fx.Invoke(setupObservability),
		metrics.Module(),
		binance_feed.Module(),
		strategy.Module(),
		runner.Module(),
		telegram.Module(),
	)
	app.Run()
}

// setupObservability поднимает zap и jaeger до старта модулей.
func setupObservability(lc fx.Lifecycle, cfg *config.Config) error {
	if err := logger.Init(cfg.Debug); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}

	logger.Info("config loaded:\n%s", cfg.YAML())

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	return nil
}
