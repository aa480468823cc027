package gate

import (
	"signal_gate/internal/models"
)

// Пороги confidence по направлению. Граница включительно.
var confidenceMin = map[models.Direction]float64{
	models.DirBuy:        60.0,
	models.DirSell:       60.0,
	models.DirStrongBuy:  70.0,
	models.DirStrongSell: 70.0,
}

// Evaluator — цепочка гейтов допуска сигнала. Чистый и без состояния:
// одинаковый контекст всегда даёт одинаковый вердикт.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Admit прогоняет все три стадии по порядку и возвращает причину
// первой блокировки. Стадия не вычисляется, если предыдущая не прошла.
func (e *Evaluator) Admit(sctx models.SignalContext) (bool, string) {
	if ok, reason := e.entry(sctx); !ok {
		return false, reason
	}
	if !e.EvaluateConfidence(sctx) {
		return false, "low_confidence"
	}
	if ok, reason := e.execution(sctx); !ok {
		return false, reason
	}
	return true, ""
}

// EvaluateEntry — первая стадия: структура сигнала и состояние системы.
// Confidence здесь не участвует.
func (e *Evaluator) EvaluateEntry(sctx models.SignalContext) bool {
	ok, _ := e.entry(sctx)
	return ok
}

func (e *Evaluator) entry(sctx models.SignalContext) (bool, string) {
	// порядок проверок фиксированный, короткое замыкание на первой неудаче
	if sctx.Symbol == "" || sctx.Timeframe == "" || !sctx.Direction.Valid() || sctx.RawConfidence <= 0 {
		return false, "invalid_signal"
	}
	switch sctx.SystemState {
	case models.SystemDegraded, models.SystemMaintenance, models.SystemEmergency:
		return false, "system_state"
	}
	if sctx.BreakerBlockActive {
		return false, "breaker_block"
	}
	if sctx.ActiveSignalExists {
		return false, "active_signal"
	}
	if sctx.CooldownActive {
		return false, "cooldown"
	}
	if sctx.MarketState != models.MarketOpen {
		return false, "market_closed"
	}
	if sctx.SignatureSeen {
		return false, "duplicate_signature"
	}
	return true, ""
}

// EvaluateConfidence сравнивает raw confidence с порогом направления.
func (e *Evaluator) EvaluateConfidence(sctx models.SignalContext) bool {
	min, ok := confidenceMin[sctx.Direction]
	if !ok {
		return false
	}
	return sctx.RawConfidence >= min
}

// EvaluateExecution — третья стадия: готов ли исполняющий слой.
func (e *Evaluator) EvaluateExecution(sctx models.SignalContext) bool {
	ok, _ := e.execution(sctx)
	return ok
}

func (e *Evaluator) execution(sctx models.SignalContext) (bool, string) {
	switch sctx.ExecState {
	case models.ExecPaused, models.ExecDisabled:
		return false, "exec_state"
	}
	if sctx.ExecLayerDown {
		return false, "exec_layer_down"
	}
	if sctx.SymbolExecLocked {
		return false, "symbol_locked"
	}
	if sctx.CapacityExhausted {
		return false, "no_capacity"
	}
	if sctx.EmergencyHalt {
		return false, "emergency_halt"
	}
	return true, ""
}
