package notify

import (
	"context"

	"go.uber.org/fx"

	"signal_gate/internal/modules/config"
	"signal_gate/internal/store"
	"signal_gate/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config, st store.Positions) (Notifier, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("telegram token not set, notifications go to stdout")
					return NewStdout(), nil
				}
				return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, st)
			},
		),

		// Long-polling команд только для телеграма
		fx.Invoke(func(lc fx.Lifecycle, n Notifier, ctx context.Context) {
			tg, ok := n.(*Telegram)
			if !ok {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					return tg.Start(ctx)
				},
				OnStop: func(_ context.Context) error {
					tg.Stop()
					return nil
				},
			})
		}),
	)
}
