// Package monitor — цикл жизни позиции: poll → чекпоинт → реанализ →
// алерт → TP/SL. Единственный писатель в store.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"signal_gate/internal/alert"
	"signal_gate/internal/checkpoint"
	"signal_gate/internal/gate"
	"signal_gate/internal/helper"
	"signal_gate/internal/market"
	"signal_gate/internal/models"
	"signal_gate/internal/notify"
	"signal_gate/internal/store"
	"signal_gate/pkg/logger"
)

// Reanalyzer — реанализ позиции на чекпоинте (внешние I/O внутри).
type Reanalyzer interface {
	ReanalyzeLive(ctx context.Context, pos *models.Position, price float64, level int) models.CheckpointAnalysis
}

// Health — чем монитор делится с health-эндпоинтом.
type Health interface {
	SetReady(bool)
	TouchPoll(time.Time)
}

type Config struct {
	Interval     time.Duration // период полного прохода
	PriceTimeout time.Duration
	// PartialPct — сколько закрывать по PARTIAL_CLOSE, в процентах
	PartialPct float64
	// NotifyCooldown — не чаще одного одинакового уведомления за окно
	NotifyCooldown time.Duration
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = 5 * time.Second
	}
	if c.PartialPct <= 0 || c.PartialPct >= 100 {
		c.PartialPct = 50
	}
	if c.NotifyCooldown <= 0 {
		c.NotifyCooldown = 15 * time.Minute
	}
}

type Monitor struct {
	cfg    Config
	store  store.Positions
	prices market.PriceSource
	gates  *gate.Evaluator
	engine Reanalyzer
	policy *alert.Policy
	tg     notify.Notifier
	health Health

	mu          sync.Mutex
	cooldownTil map[string]time.Time

	// faulted — позиции с повреждённым состоянием: исключаем из
	// обработки до ручного разбора, цикл не роняем
	faulted map[int64]bool
}

func New(
	cfg Config,
	st store.Positions,
	prices market.PriceSource,
	gates *gate.Evaluator,
	engine Reanalyzer,
	policy *alert.Policy,
	tg notify.Notifier,
	health Health,
) *Monitor {
	cfg.defaults()
	return &Monitor{
		cfg:         cfg,
		store:       st,
		prices:      prices,
		gates:       gates,
		engine:      engine,
		policy:      policy,
		tg:          tg,
		health:      health,
		cooldownTil: make(map[string]time.Time),
		faulted:     make(map[int64]bool),
	}
}

// HandleSignal — допуск сигнала через гейты и открытие позиции.
// admitted=false — сигнал заблокирован (reason говорит чем), в стор
// не попадает.
func (m *Monitor) HandleSignal(ctx context.Context, sctx models.SignalContext, sig models.Signal) (int64, bool, string, error) {
	sctx.Timeframe = helper.NormTF(sctx.Timeframe)
	sig.Timeframe = helper.NormTF(sig.Timeframe)

	ok, reason := m.gates.Admit(sctx)
	if !ok {
		logger.Info("signal %s/%s blocked: %s", sctx.Symbol, sctx.Timeframe, reason)
		return 0, false, reason, nil
	}

	id, err := m.store.Open(ctx, sig)
	if err != nil {
		return 0, true, "", err
	}
	logger.Info("position #%d opened: %s %s @ %.4f", id, sig.Symbol, sig.Direction, sig.Entry)
	m.notifyf("open:"+sig.Symbol,
		"🚀 [%s] Позиция #%d открыта (%s) entry=%.4f sl=%.4f tp1=%.4f",
		sig.Symbol, id, sig.Direction, sig.Entry, sig.StopLoss, sig.TP1)
	return id, true, "", nil
}

// Run — вечный цикл с фиксированным интервалом, до отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	if m.health != nil {
		m.health.SetReady(true)
		defer m.health.SetReady(false)
	}

	_ = m.RunPass(ctx) // сразу при старте

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.RunPass(ctx)
		}
	}
}

// RunPass — один полный проход по всем открытым позициям.
// Ошибка одной позиции не прерывает остальные.
func (m *Monitor) RunPass(ctx context.Context) error {
	span := opentracing.StartSpan("monitor.pass")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	positions, err := m.store.GetOpen(ctx)
	if err != nil {
		logger.Error("monitor: fetch open positions: %v", err)
		return err
	}

	for i := range positions {
		pos := &positions[i]
		if m.faulted[pos.ID] {
			continue
		}
		if err := m.checkOne(ctx, pos); err != nil {
			logger.Error("monitor: position #%d: %v", pos.ID, err)
		}
	}

	if m.health != nil {
		m.health.TouchPoll(time.Now())
	}
	return nil
}

// checkOne — жизненный цикл одной позиции за один проход.
func (m *Monitor) checkOne(ctx context.Context, pos *models.Position) error {
	cSpan, ctx := opentracing.StartSpanFromContext(ctx, "monitor.position")
	defer cSpan.Finish()
	cSpan.SetTag("position_id", pos.ID)

	pctx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout)
	price, err := m.prices.Price(pctx, pos.Symbol)
	cancel()
	if err != nil {
		// цена недоступна — пропускаем цикл, не фатально
		logger.Warn("monitor: skip #%d, price fetch failed: %v", pos.ID, err)
		return nil
	}

	if err := m.store.Touch(ctx, pos.ID, time.Now()); err != nil {
		// сломанная строка: исключаем позицию до разбора
		if isFault(err) {
			m.faulted[pos.ID] = true
			return fmt.Errorf("excluded from monitoring: %w", err)
		}
		logger.Error("monitor: touch #%d: %v", pos.ID, err)
	}

	progress := checkpoint.Progress(pos.Entry, pos.TP1, price, pos.Direction)
	if level, ok := checkpoint.Next(progress, pos.Checkpoints); ok {
		closed, err := m.fireCheckpoint(ctx, pos, price, level)
		if err != nil {
			return err
		}
		if closed {
			return nil
		}
	}

	return m.checkExit(ctx, pos, price)
}

// fireCheckpoint: реанализ → persist флага и лога → уведомление →
// действие по рекомендации. Порядок фиксированный: флаг пишется до
// попытки уведомления, чтобы упавший процесс не продублировал алерт.
func (m *Monitor) fireCheckpoint(ctx context.Context, pos *models.Position, price float64, level int) (closed bool, err error) {
	analysis := m.engine.ReanalyzeLive(ctx, pos, price, level)
	doAlert, reason := m.policy.ShouldAlert(analysis, pos)

	if err := m.store.MarkCheckpoint(ctx, pos.ID, level); err != nil {
		if isFault(err) {
			m.faulted[pos.ID] = true
		}
		// флаг не записан — не уведомляем и не действуем, попробуем
		// следующим циклом
		return false, fmt.Errorf("mark checkpoint %d: %w", level, err)
	}
	if i := checkpoint.Index(level); i >= 0 {
		pos.Checkpoints[i] = true
	}

	action := models.ActionMonitored
	if doAlert {
		action = models.ActionAlerted
	}
	rec := &models.CheckpointAlert{
		PositionID:       pos.ID,
		Level:            level,
		TriggerPrice:     price,
		ConfidenceBefore: analysis.ConfidenceBefore,
		ConfidenceAfter:  analysis.ConfidenceAfter,
		ConfidenceDelta:  analysis.ConfidenceDelta,
		StructureBroken:  analysis.StructureBroken,
		HTFBiasChanged:   analysis.HTFBiasChanged,
		RiskReward:       analysis.RiskReward,
		Recommendation:   analysis.Recommendation,
		Reasoning:        analysis.Reasoning,
		Action:           action,
	}
	if err := m.store.LogAlert(ctx, rec); err != nil {
		// лог не должен блокировать уведомление: флаг уже взведён
		logger.Error("monitor: log alert #%d: %v", pos.ID, err)
	}

	if doAlert {
		m.notifyf(fmt.Sprintf("cp:%s:%d", pos.Symbol, level),
			"📍 [%s] Чекпоинт %d%% (#%d, %s) price=%.4f Δconf=%+.1f → %s | %s",
			pos.Symbol, level, pos.ID, reason, price,
			analysis.ConfidenceDelta, analysis.Recommendation, analysis.Reasoning)
	}

	return m.applyRecommendation(ctx, pos, price, analysis)
}

func (m *Monitor) applyRecommendation(ctx context.Context, pos *models.Position, price float64, a models.CheckpointAnalysis) (closed bool, err error) {
	switch a.Recommendation {
	case models.RecommendMoveSL:
		// стоп в безубыток
		if err := m.store.MoveStop(ctx, pos.ID, pos.Entry); err != nil {
			return false, fmt.Errorf("move stop: %w", err)
		}
		pos.StopLoss = pos.Entry
		m.notifyf("sl:"+pos.Symbol,
			"🛡 [%s] SL → безубыток %.4f (#%d)", pos.Symbol, pos.Entry, pos.ID)

	case models.RecommendPartialClose:
		if err := m.store.PartialClose(ctx, pos.ID, m.cfg.PartialPct); err != nil {
			return false, fmt.Errorf("partial close: %w", err)
		}
		pos.SizeFraction *= 1 - m.cfg.PartialPct/100
		pos.Status = models.StatusPartial
		m.notifyf("partial:"+pos.Symbol,
			"💰 [%s] Частичная фиксация %.0f%% (#%d) | %s",
			pos.Symbol, m.cfg.PartialPct, pos.ID, a.Reasoning)

	case models.RecommendCloseNow:
		pnl, err := m.store.Close(ctx, pos.ID, price, models.OutcomeEarlyExit)
		if err != nil {
			return false, fmt.Errorf("close: %w", err)
		}
		pos.Status = models.StatusClosed
		m.tg.Sendf("⛔️ [%s] Ранний выход (#%d) @ %.4f pnl=%+.2f%% | %s",
			pos.Symbol, pos.ID, price, pnl, a.Reasoning)
		return true, nil
	}
	return false, nil
}

// checkExit — пересечение TP/SL текущей ценой.
func (m *Monitor) checkExit(ctx context.Context, pos *models.Position, price float64) error {
	var outcome models.Outcome
	long := pos.Direction.IsLong()
	switch {
	case long && price >= pos.TP1, !long && price <= pos.TP1:
		outcome = models.OutcomeTPHit
	case long && price <= pos.StopLoss, !long && price >= pos.StopLoss:
		outcome = models.OutcomeSLHit
	default:
		return nil
	}

	pnl, err := m.store.Close(ctx, pos.ID, price, outcome)
	if err != nil {
		if errors.Is(err, store.ErrClosed) {
			return nil
		}
		if isFault(err) {
			m.faulted[pos.ID] = true
		}
		return fmt.Errorf("close on %s: %w", outcome, err)
	}

	emoji := "🎯"
	if outcome == models.OutcomeSLHit {
		emoji = "🛑"
	}
	m.tg.Sendf("%s [%s] %s (#%d) @ %.4f pnl=%+.2f%%",
		emoji, pos.Symbol, outcome, pos.ID, price, pnl)
	return nil
}

// notifyf — уведомление с подавлением повторов в окне NotifyCooldown.
func (m *Monitor) notifyf(key, format string, args ...any) {
	m.mu.Lock()
	now := time.Now()
	if til, ok := m.cooldownTil[key]; ok && now.Before(til) {
		m.mu.Unlock()
		return
	}
	m.cooldownTil[key] = now.Add(m.cfg.NotifyCooldown)
	m.mu.Unlock()

	m.tg.Sendf(format, args...)
}

// isFault: строка позиции потеряна/повреждена. Конкурентное закрытие
// (ErrClosed) фолтом не считается.
func isFault(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
