// Package memory — in-memory реализация store.Positions для тестов
// и dry-run режима.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"signal_gate/internal/checkpoint"
	"signal_gate/internal/models"
	"signal_gate/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	nextID  int64
	pos     map[int64]*models.Position
	alerts  map[int64][]models.CheckpointAlert
	history []models.PositionHistory
}

func New() *Store {
	return &Store{
		nextID: 1,
		pos:    make(map[int64]*models.Position),
		alerts: make(map[int64][]models.CheckpointAlert),
	}
}

var _ store.Positions = (*Store)(nil)

func (s *Store) Open(_ context.Context, sig models.Signal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	now := time.Now()
	s.pos[id] = &models.Position{
		ID:           id,
		Symbol:       sig.Symbol,
		Timeframe:    sig.Timeframe,
		Direction:    sig.Direction,
		Entry:        sig.Entry,
		StopLoss:     sig.StopLoss,
		TP1:          sig.TP1,
		TP2:          sig.TP2,
		TP3:          sig.TP3,
		SizeFraction: 1.0,
		Status:       models.StatusOpen,
		Signal:       sig,
		OpenedAt:     now,
		CheckedAt:    now,
	}
	return id, nil
}

func (s *Store) Get(_ context.Context, id int64) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetOpen(_ context.Context) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Position, 0, len(s.pos))
	for _, p := range s.pos {
		if p.Status == models.StatusClosed {
			continue
		}
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) MarkCheckpoint(_ context.Context, id int64, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status == models.StatusClosed {
		return store.ErrClosed
	}
	i := checkpoint.Index(level)
	if i < 0 {
		return store.ErrNotFound
	}
	p.Checkpoints[i] = true
	return nil
}

func (s *Store) LogAlert(_ context.Context, a *models.CheckpointAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pos[a.PositionID]; !ok {
		return store.ErrNotFound
	}
	rec := *a
	rec.ID = int64(len(s.alerts[a.PositionID]) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.alerts[a.PositionID] = append(s.alerts[a.PositionID], rec)
	return nil
}

func (s *Store) MoveStop(_ context.Context, id int64, stop float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status == models.StatusClosed {
		return store.ErrClosed
	}
	p.StopLoss = stop
	return nil
}

func (s *Store) Touch(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return store.ErrNotFound
	}
	p.CheckedAt = at
	return nil
}

func (s *Store) PartialClose(_ context.Context, id int64, percent float64) error {
	if percent <= 0 || percent >= 100 {
		return store.ErrBadFraction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status == models.StatusClosed {
		return store.ErrClosed
	}
	p.SizeFraction *= 1 - percent/100
	p.Status = models.StatusPartial
	return nil
}

func (s *Store) Close(_ context.Context, id int64, exit float64, outcome models.Outcome) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	if p.Status == models.StatusClosed {
		return 0, store.ErrClosed
	}

	pnl := store.PnlPercent(p.Direction, p.Entry, exit, p.SizeFraction)
	now := time.Now()

	alerted := 0
	for _, a := range s.alerts[id] {
		if a.Action == models.ActionAlerted {
			alerted++
		}
	}

	s.history = append(s.history, models.PositionHistory{
		ID:         int64(len(s.history) + 1),
		PositionID: id,
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Entry:      p.Entry,
		Exit:       exit,
		PnlPercent: pnl,
		Outcome:    outcome,
		Duration:   now.Sub(p.OpenedAt),
		Fired:      p.FiredCount(),
		Alerted:    alerted,
		ClosedAt:   now,
	})
	p.Status = models.StatusClosed
	return pnl, nil
}

func (s *Store) History(_ context.Context, limit int) ([]models.PositionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	res := make([]models.PositionHistory, limit)
	// свежие первыми
	for i := 0; i < limit; i++ {
		res[i] = s.history[n-1-i]
	}
	return res, nil
}

func (s *Store) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.Stats{}
	for _, p := range s.pos {
		if p.Status != models.StatusClosed {
			st.Open++
		}
	}
	for _, h := range s.history {
		st.Closed++
		st.TotalPnl += h.PnlPercent
		if h.PnlPercent >= 0 {
			st.Wins++
		} else {
			st.Losses++
		}
		st.Alerts += int64(h.Alerted)
	}
	if st.Closed > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Closed) * 100
		st.AvgPnl = st.TotalPnl / float64(st.Closed)
	}
	return st, nil
}
