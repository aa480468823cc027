package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"signal_gate/internal/modules/config"
	"signal_gate/internal/store"
	"signal_gate/internal/store/memory"
	"signal_gate/internal/store/pg"
	"signal_gate/pkg/db"
)

// Module отдаёт store.Positions: postgres по умолчанию,
// memory для dry-run (store: memory в конфиге).
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (store.Positions, error) {
				if cfg.Store == "memory" {
					return memory.New(), nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				txm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						txm.Close()
						return nil
					},
				})

				st := pg.New(txm)
				if err := st.Migrate(ctx); err != nil {
					return nil, err
				}
				return st, nil
			},
		),
	)
}
