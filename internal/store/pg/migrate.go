package pg

import (
	"context"
	"fmt"
)

// Migrate создаёт схему, если её ещё нет. Идемпотентно.
func (s *Store) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Migrate: %w", err)
		}
	}()

	stmts := []string{`
		CREATE TABLE IF NOT EXISTS open_positions (
			id            BIGSERIAL PRIMARY KEY,
			symbol        TEXT NOT NULL,
			timeframe     TEXT NOT NULL,
			direction     TEXT NOT NULL,
			entry         DOUBLE PRECISION NOT NULL,
			stop_loss     DOUBLE PRECISION NOT NULL,
			tp1           DOUBLE PRECISION NOT NULL,
			tp2           DOUBLE PRECISION NOT NULL DEFAULT 0,
			tp3           DOUBLE PRECISION NOT NULL DEFAULT 0,
			size_fraction DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			cp25          BOOLEAN NOT NULL DEFAULT FALSE,
			cp50          BOOLEAN NOT NULL DEFAULT FALSE,
			cp75          BOOLEAN NOT NULL DEFAULT FALSE,
			cp85          BOOLEAN NOT NULL DEFAULT FALSE,
			status        TEXT NOT NULL DEFAULT 'OPEN',
			signal        JSONB NOT NULL,
			opened_at     TIMESTAMPTZ NOT NULL,
			checked_at    TIMESTAMPTZ NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS checkpoint_alerts (
			id                BIGSERIAL PRIMARY KEY,
			position_id       BIGINT NOT NULL REFERENCES open_positions(id),
			level             INT NOT NULL,
			trigger_price     DOUBLE PRECISION NOT NULL,
			confidence_before DOUBLE PRECISION NOT NULL,
			confidence_after  DOUBLE PRECISION NOT NULL,
			confidence_delta  DOUBLE PRECISION NOT NULL,
			structure_broken  BOOLEAN NOT NULL,
			htf_bias_changed  BOOLEAN NOT NULL,
			risk_reward       DOUBLE PRECISION NOT NULL,
			recommendation    TEXT NOT NULL,
			reasoning         TEXT NOT NULL,
			action            TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS position_history (
			id           BIGSERIAL PRIMARY KEY,
			position_id  BIGINT NOT NULL REFERENCES open_positions(id),
			symbol       TEXT NOT NULL,
			direction    TEXT NOT NULL,
			entry        DOUBLE PRECISION NOT NULL,
			exit         DOUBLE PRECISION NOT NULL,
			pnl_percent  DOUBLE PRECISION NOT NULL,
			outcome      TEXT NOT NULL,
			duration_sec BIGINT NOT NULL,
			fired        INT NOT NULL,
			alerted      INT NOT NULL,
			closed_at    TIMESTAMPTZ NOT NULL
		)`, `
		CREATE INDEX IF NOT EXISTS idx_open_positions_status ON open_positions(status)`, `
		CREATE INDEX IF NOT EXISTS idx_checkpoint_alerts_position ON checkpoint_alerts(position_id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Conn().Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
