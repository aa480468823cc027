package market

import (
	"context"

	"go.uber.org/fx"

	"signal_gate/internal/modules/config"
	"signal_gate/internal/modules/health/service"
	"signal_gate/internal/store"
	"signal_gate/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			func(cfg *config.Config) *Client {
				return NewClient(cfg.Market.BaseURL, cfg.Market.WSURL, cfg.Market.Timeout.Duration())
			},
			func(c *Client) PriceSource { return c },
		),

		// Стрим цен по символам открытых позиций. Новые символы после
		// старта обслуживает HTTP-фоллбек в Price.
		fx.Invoke(func(
			lc fx.Lifecycle,
			c *Client,
			st store.Positions,
			state *service.State,
			ctx context.Context,
		) {
			c.OnConnState(state.SetStreamConnected)
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						open, err := st.GetOpen(ctx)
						if err != nil {
							logger.Error("market: load open positions: %v", err)
							return
						}
						seen := make(map[string]bool, len(open))
						symbols := make([]string, 0, len(open))
						for _, p := range open {
							if !seen[p.Symbol] {
								seen[p.Symbol] = true
								symbols = append(symbols, p.Symbol)
							}
						}
						if len(symbols) == 0 {
							return
						}
						c.StreamPrices(ctx, symbols)
					}()
					return nil
				},
			})
		}),
	)
}
