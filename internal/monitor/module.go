package monitor

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"signal_gate/internal/alert"
	"signal_gate/internal/gate"
	"signal_gate/internal/market"
	"signal_gate/internal/modules/config"
	"signal_gate/internal/modules/health/service"
	"signal_gate/internal/news"
	"signal_gate/internal/notify"
	"signal_gate/internal/reanalysis"
	"signal_gate/internal/store"
)

func Module() fx.Option {
	return fx.Module("monitor",
		// Чистые компоненты
		fx.Provide(
			gate.NewEvaluator,
			alert.NewPolicy,
		),

		// Внешние источники реанализа
		fx.Provide(
			func(cfg *config.Config) reanalysis.ScoreSource {
				return reanalysis.NewScoreClient(cfg.Scores.BaseURL, cfg.Scores.Timeout.Duration())
			},
			func(cfg *config.Config) news.Provider {
				if !cfg.News.Enabled {
					return news.Disabled{}
				}
				return news.NewClient(cfg.News.BaseURL, cfg.News.Timeout.Duration())
			},
			func(cfg *config.Config, ss reanalysis.ScoreSource, np news.Provider) *reanalysis.Engine {
				return reanalysis.NewEngine(ss, np, reanalysis.FailMode(cfg.Monitor.ReanalysisFailMode))
			},
			func(e *reanalysis.Engine) Reanalyzer { return e },
		),

		// Сам монитор
		fx.Provide(
			func(
				cfg *config.Config,
				st store.Positions,
				prices market.PriceSource,
				gates *gate.Evaluator,
				engine Reanalyzer,
				policy *alert.Policy,
				tg notify.Notifier,
				state *service.State,
			) *Monitor {
				return New(Config{
					Interval:       cfg.Monitor.Interval.Duration(),
					PriceTimeout:   cfg.Market.Timeout.Duration(),
					PartialPct:     cfg.Monitor.PartialPct,
					NotifyCooldown: cfg.Monitor.NotifyCooldown.Duration(),
				}, st, prices, gates, engine, policy, tg, state)
			},
		),

		// Приём сигналов на общем admin-mux
		fx.Invoke(func(mux *http.ServeMux, m *Monitor) {
			m.RegisterIntake(mux)
		}),

		// Основной цикл
		fx.Invoke(func(lc fx.Lifecycle, m *Monitor, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go m.Run(ctx)
					return nil
				},
			})
		}),
	)
}
