package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signal_gate/internal/models"
	"signal_gate/internal/store"
)

func sig() models.Signal {
	return models.Signal{
		SchemaVersion: models.SignalSchemaVersion,
		Symbol:        "BTC-USDT",
		Timeframe:     "15m",
		Direction:     models.DirBuy,
		Entry:         40000,
		StopLoss:      39000,
		TP1:           42000,
		Confidence:    75,
		GeneratedAt:   time.Now(),
	}
}

func TestOpenAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Open(ctx, sig())
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	p, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StatusOpen, p.Status)
	require.Equal(t, 1.0, p.SizeFraction)
	require.Equal(t, models.SignalSchemaVersion, p.Signal.SchemaVersion)

	// ids стабильные и не переиспользуются
	id2, err := s.Open(ctx, sig())
	require.NoError(t, err)
	require.Equal(t, int64(2), id2)

	_, err = s.Get(ctx, 99)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkCheckpoint_OneWay(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Open(ctx, sig())

	require.NoError(t, s.MarkCheckpoint(ctx, id, 25))
	require.NoError(t, s.MarkCheckpoint(ctx, id, 25)) // идемпотентно

	p, _ := s.Get(ctx, id)
	require.True(t, p.CheckpointFired(25))
	require.False(t, p.CheckpointFired(50))
}

func TestPartialClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Open(ctx, sig())

	require.ErrorIs(t, s.PartialClose(ctx, id, 0), store.ErrBadFraction)
	require.ErrorIs(t, s.PartialClose(ctx, id, 100), store.ErrBadFraction)

	require.NoError(t, s.PartialClose(ctx, id, 60))
	p, _ := s.Get(ctx, id)
	require.InDelta(t, 0.4, p.SizeFraction, 1e-9)
	require.Equal(t, models.StatusPartial, p.Status)
}

func TestClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Open(ctx, sig())

	pnl, err := s.Close(ctx, id, 42000, models.OutcomeTPHit)
	require.NoError(t, err)
	require.InDelta(t, 5.0, pnl, 0.01)

	// CLOSED терминален
	_, err = s.Close(ctx, id, 42000, models.OutcomeTPHit)
	require.ErrorIs(t, err, store.ErrClosed)
	require.ErrorIs(t, s.MarkCheckpoint(ctx, id, 50), store.ErrClosed)
	require.ErrorIs(t, s.PartialClose(ctx, id, 50), store.ErrClosed)

	open, _ := s.GetOpen(ctx)
	require.Empty(t, open)

	hist, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, models.OutcomeTPHit, hist[0].Outcome)
}

func TestClose_PartialReducesPnl(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Open(ctx, sig())

	require.NoError(t, s.PartialClose(ctx, id, 60))
	pnl, err := s.Close(ctx, id, 42000, models.OutcomeManualClose)
	require.NoError(t, err)
	require.InDelta(t, 2.0, pnl, 0.01) // 5% * 0.4
}

func TestStats(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, _ := s.Open(ctx, sig())
	id2, _ := s.Open(ctx, sig())
	_, _ = s.Open(ctx, sig()) // остаётся открытой

	require.NoError(t, s.LogAlert(ctx, &models.CheckpointAlert{
		PositionID: id1, Level: 25, Action: models.ActionAlerted,
	}))
	require.NoError(t, s.LogAlert(ctx, &models.CheckpointAlert{
		PositionID: id1, Level: 50, Action: models.ActionMonitored,
	}))

	_, _ = s.Close(ctx, id1, 42000, models.OutcomeTPHit)
	_, _ = s.Close(ctx, id2, 39000, models.OutcomeSLHit)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.Open)
	require.Equal(t, 2, st.Closed)
	require.Equal(t, 1, st.Wins)
	require.Equal(t, 1, st.Losses)
	require.InDelta(t, 50.0, st.WinRate, 1e-9)
	require.Equal(t, int64(1), st.Alerts) // MONITORED не считается
}
