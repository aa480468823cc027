// Package store — репозиторий позиций. Единственная точка I/O
// по open_positions / checkpoint_alerts / position_history.
package store

import (
	"context"
	"errors"
	"time"

	"signal_gate/internal/models"
)

var (
	ErrNotFound = errors.New("position not found")
	// ErrClosed — позиция уже CLOSED: ни чекпоинтов, ни изменения размера.
	ErrClosed      = errors.New("position already closed")
	ErrBadFraction = errors.New("partial close percent must be in (0,100)")
)

type Positions interface {
	// Open создаёт позицию из допущенного сигнала, возвращает стабильный id.
	Open(ctx context.Context, sig models.Signal) (int64, error)
	Get(ctx context.Context, id int64) (*models.Position, error)
	GetOpen(ctx context.Context) ([]models.Position, error)

	// MarkCheckpoint взводит флаг уровня (однонаправленно false→true).
	MarkCheckpoint(ctx context.Context, id int64, level int) error
	// LogAlert — append-only запись чекпоинт-алерта.
	LogAlert(ctx context.Context, a *models.CheckpointAlert) error
	// MoveStop переносит стоп (MOVE_SL → безубыток).
	MoveStop(ctx context.Context, id int64, stop float64) error
	// Touch обновляет last-checked-at.
	Touch(ctx context.Context, id int64, at time.Time) error

	// PartialClose умножает size fraction на (1 - percent/100), статус PARTIAL.
	PartialClose(ctx context.Context, id int64, percent float64) error
	// Close пишет ровно одну строку истории и ставит CLOSED. Возвращает P&L%.
	Close(ctx context.Context, id int64, exit float64, outcome models.Outcome) (float64, error)

	History(ctx context.Context, limit int) ([]models.PositionHistory, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// PnlPercent — реализованный P&L в процентах с учётом остатка позиции.
func PnlPercent(dir models.Direction, entry, exit, sizeFraction float64) float64 {
	if entry == 0 {
		return 0
	}
	raw := (exit - entry) / entry * 100
	if !dir.IsLong() {
		raw = (entry - exit) / entry * 100
	}
	return raw * sizeFraction
}
