// Package pg — постоянное хранилище позиций поверх PostgreSQL.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"signal_gate/internal/checkpoint"
	"signal_gate/internal/models"
	"signal_gate/internal/store"
	"signal_gate/pkg/db"
)

type Store struct {
	db *db.PgTxManager
}

func New(m *db.PgTxManager) *Store {
	return &Store{db: m}
}

var _ store.Positions = (*Store)(nil)

const positionColumns = `id, symbol, timeframe, direction, entry, stop_loss, tp1, tp2, tp3,
	size_fraction, cp25, cp50, cp75, cp85, status, signal, opened_at, checked_at`

func (s *Store) Open(ctx context.Context, sig models.Signal) (id int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Open: %w", err)
		}
	}()

	if sig.SchemaVersion == 0 {
		sig.SchemaVersion = models.SignalSchemaVersion
	}
	blob, err := sonic.Marshal(sig)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	err = s.db.Conn().QueryRow(ctx, `
		INSERT INTO open_positions
			(symbol, timeframe, direction, entry, stop_loss, tp1, tp2, tp3,
			 size_fraction, status, signal, opened_at, checked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, 1.0, $9, $10, $11, $11)
		RETURNING id`,
		sig.Symbol, sig.Timeframe, string(sig.Direction),
		sig.Entry, sig.StopLoss, sig.TP1, sig.TP2, sig.TP3,
		string(models.StatusOpen), blob, now,
	).Scan(&id)
	return id, err
}

func (s *Store) Get(ctx context.Context, id int64) (p *models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Get: %w", err)
		}
	}()
	row := s.db.Conn().QueryRow(ctx,
		`SELECT `+positionColumns+` FROM open_positions WHERE id = $1`, id)
	return scanPosition(row)
}

func (s *Store) GetOpen(ctx context.Context) (res []models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.GetOpen: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx,
		`SELECT `+positionColumns+` FROM open_positions WHERE status <> $1 ORDER BY id`,
		string(models.StatusClosed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

func (s *Store) MarkCheckpoint(ctx context.Context, id int64, level int) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.MarkCheckpoint: %w", err)
		}
	}()
	if checkpoint.Index(level) < 0 {
		return store.ErrNotFound
	}
	col := fmt.Sprintf("cp%d", level)
	tag, err := s.db.Conn().Exec(ctx,
		`UPDATE open_positions SET `+col+` = TRUE WHERE id = $1 AND status <> $2`,
		id, string(models.StatusClosed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.closedOrMissing(ctx, id)
	}
	return nil
}

func (s *Store) LogAlert(ctx context.Context, a *models.CheckpointAlert) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.LogAlert: %w", err)
		}
	}()
	at := a.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return s.db.Conn().QueryRow(ctx, `
		INSERT INTO checkpoint_alerts
			(position_id, level, trigger_price, confidence_before, confidence_after,
			 confidence_delta, structure_broken, htf_bias_changed, risk_reward,
			 recommendation, reasoning, action, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		a.PositionID, a.Level, a.TriggerPrice,
		a.ConfidenceBefore, a.ConfidenceAfter, a.ConfidenceDelta,
		a.StructureBroken, a.HTFBiasChanged, a.RiskReward,
		string(a.Recommendation), a.Reasoning, string(a.Action), at,
	).Scan(&a.ID)
}

func (s *Store) MoveStop(ctx context.Context, id int64, stop float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.MoveStop: %w", err)
		}
	}()
	tag, err := s.db.Conn().Exec(ctx,
		`UPDATE open_positions SET stop_loss = $2 WHERE id = $1 AND status <> $3`,
		id, stop, string(models.StatusClosed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.closedOrMissing(ctx, id)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, id int64, at time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Touch: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx,
		`UPDATE open_positions SET checked_at = $2 WHERE id = $1`, id, at)
	return err
}

func (s *Store) PartialClose(ctx context.Context, id int64, percent float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.PartialClose: %w", err)
		}
	}()
	if percent <= 0 || percent >= 100 {
		return store.ErrBadFraction
	}
	tag, err := s.db.Conn().Exec(ctx, `
		UPDATE open_positions
		SET size_fraction = size_fraction * (1 - $2/100.0), status = $3
		WHERE id = $1 AND status <> $4`,
		id, percent, string(models.StatusPartial), string(models.StatusClosed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.closedOrMissing(ctx, id)
	}
	return nil
}

// Close выполняется в одной транзакции: прочитать с блокировкой,
// посчитать P&L, записать историю, пометить CLOSED.
func (s *Store) Close(ctx context.Context, id int64, exit float64, outcome models.Outcome) (pnl float64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Close: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+positionColumns+` FROM open_positions WHERE id = $1 FOR UPDATE`, id)
		p, err := scanPosition(row)
		if err != nil {
			return err
		}
		if p.Status == models.StatusClosed {
			return store.ErrClosed
		}

		pnl = store.PnlPercent(p.Direction, p.Entry, exit, p.SizeFraction)
		now := time.Now()

		var alerted int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM checkpoint_alerts WHERE position_id = $1 AND action = $2`,
			id, string(models.ActionAlerted)).Scan(&alerted); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO position_history
				(position_id, symbol, direction, entry, exit, pnl_percent,
				 outcome, duration_sec, fired, alerted, closed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			id, p.Symbol, string(p.Direction), p.Entry, exit, pnl,
			string(outcome), int64(now.Sub(p.OpenedAt).Seconds()),
			p.FiredCount(), alerted, now,
		); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE open_positions SET status = $2 WHERE id = $1`,
			id, string(models.StatusClosed))
		return err
	})
	if err != nil {
		return 0, err
	}
	return pnl, nil
}

func (s *Store) History(ctx context.Context, limit int) (res []models.PositionHistory, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.History: %w", err)
		}
	}()
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, position_id, symbol, direction, entry, exit, pnl_percent,
		       outcome, duration_sec, fired, alerted, closed_at
		FROM position_history ORDER BY closed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h models.PositionHistory
		var dir, outcome string
		var durSec int64
		if err := rows.Scan(&h.ID, &h.PositionID, &h.Symbol, &dir, &h.Entry, &h.Exit,
			&h.PnlPercent, &outcome, &durSec, &h.Fired, &h.Alerted, &h.ClosedAt); err != nil {
			return nil, err
		}
		h.Direction = models.Direction(dir)
		h.Outcome = models.Outcome(outcome)
		h.Duration = time.Duration(durSec) * time.Second
		res = append(res, h)
	}
	return res, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (st models.Stats, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Stats: %w", err)
		}
	}()
	err = s.db.Conn().QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM open_positions WHERE status <> $1),
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl_percent >= 0),
			COUNT(*) FILTER (WHERE pnl_percent < 0),
			COALESCE(SUM(pnl_percent), 0),
			COALESCE(SUM(alerted), 0)
		FROM position_history`,
		string(models.StatusClosed),
	).Scan(&st.Open, &st.Closed, &st.Wins, &st.Losses, &st.TotalPnl, &st.Alerts)
	if err != nil {
		return st, err
	}
	if st.Closed > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Closed) * 100
		st.AvgPnl = st.TotalPnl / float64(st.Closed)
	}
	return st, nil
}

func (s *Store) closedOrMissing(ctx context.Context, id int64) error {
	var status string
	err := s.db.Conn().QueryRow(ctx,
		`SELECT status FROM open_positions WHERE id = $1`, id).Scan(&status)
	if err == pgx.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == string(models.StatusClosed) {
		return store.ErrClosed
	}
	return store.ErrNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var dir, status string
	var blob []byte
	err := row.Scan(&p.ID, &p.Symbol, &p.Timeframe, &dir, &p.Entry, &p.StopLoss,
		&p.TP1, &p.TP2, &p.TP3, &p.SizeFraction,
		&p.Checkpoints[0], &p.Checkpoints[1], &p.Checkpoints[2], &p.Checkpoints[3],
		&status, &blob, &p.OpenedAt, &p.CheckedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Direction = models.Direction(dir)
	p.Status = models.PositionStatus(status)
	if err := sonic.Unmarshal(blob, &p.Signal); err != nil {
		return nil, fmt.Errorf("decode signal blob: %w", err)
	}
	return &p, nil
}
