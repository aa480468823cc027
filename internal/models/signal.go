package models

import "time"

type Direction string

const (
	DirNone       Direction = ""
	DirBuy        Direction = "BUY"
	DirSell       Direction = "SELL"
	DirStrongBuy  Direction = "STRONG_BUY"
	DirStrongSell Direction = "STRONG_SELL"
)

// IsLong — STRONG_BUY считаем лонгом, STRONG_SELL шортом.
func (d Direction) IsLong() bool {
	return d == DirBuy || d == DirStrongBuy
}

func (d Direction) Valid() bool {
	switch d {
	case DirBuy, DirSell, DirStrongBuy, DirStrongSell:
		return true
	}
	return false
}

type SystemState string

const (
	// zero value = OPERATIONAL, чтобы незаполненный контекст не блокировал
	SystemOperational SystemState = ""
	SystemDegraded    SystemState = "DEGRADED"
	SystemMaintenance SystemState = "MAINTENANCE"
	SystemEmergency   SystemState = "EMERGENCY"
)

type MarketState string

const (
	MarketOpen   MarketState = "OPEN"
	MarketClosed MarketState = "CLOSED"
	MarketHalted MarketState = "HALTED"
)

type ExecState string

const (
	ExecActive   ExecState = ""
	ExecPaused   ExecState = "PAUSED"
	ExecDisabled ExecState = "DISABLED"
)

// SignalContext — входные данные для гейтов. Только чтение:
// эвалюатор ничего здесь не мутирует.
type SignalContext struct {
	Symbol        string    `json:"symbol" yaml:"symbol"`
	Timeframe     string    `json:"timeframe" yaml:"timeframe"`
	Direction     Direction `json:"direction" yaml:"direction"`
	RawConfidence float64   `json:"raw_confidence" yaml:"raw_confidence"` // 0..100

	SystemState SystemState `json:"system_state,omitempty" yaml:"system_state"` // пусто = OPERATIONAL
	MarketState MarketState `json:"market_state,omitempty" yaml:"market_state"`

	BreakerBlockActive bool `json:"breaker_block_active,omitempty" yaml:"breaker_block_active"`
	ActiveSignalExists bool `json:"active_signal_exists,omitempty" yaml:"active_signal_exists"` // уже есть сигнал по symbol+timeframe
	CooldownActive     bool `json:"cooldown_active,omitempty" yaml:"cooldown_active"`
	SignatureSeen      bool `json:"signature_seen,omitempty" yaml:"signature_seen"`

	ExecState         ExecState `json:"exec_state,omitempty" yaml:"exec_state"`
	ExecLayerDown     bool      `json:"exec_layer_down,omitempty" yaml:"exec_layer_down"` // execution layer недоступен
	SymbolExecLocked  bool      `json:"symbol_exec_locked,omitempty" yaml:"symbol_exec_locked"`
	CapacityExhausted bool      `json:"capacity_exhausted,omitempty" yaml:"capacity_exhausted"` // нет свободных слотов под позицию
	EmergencyHalt     bool      `json:"emergency_halt,omitempty" yaml:"emergency_halt"`
}

// Signal — снапшот сигнала на момент открытия позиции.
// Хранится в position как versioned JSON blob, поэтому schema_version.
type Signal struct {
	SchemaVersion int       `json:"schema_version"`
	Symbol        string    `json:"symbol"`
	Timeframe     string    `json:"timeframe"`
	Direction     Direction `json:"direction"`
	Entry         float64   `json:"entry"`
	StopLoss      float64   `json:"stop_loss"`
	TP1           float64   `json:"tp1"`
	TP2           float64   `json:"tp2,omitempty"`
	TP3           float64   `json:"tp3,omitempty"`
	Confidence    float64   `json:"confidence"`
	HTFBias       Direction `json:"htf_bias,omitempty"`
	StructureOK   bool      `json:"structure_ok"`
	GeneratedAt   time.Time `json:"generated_at"`
	Reason        string    `json:"reason,omitempty"`
}

const SignalSchemaVersion = 1

// FreshScore — результат повторного скоринга позиции на чекпоинте.
type FreshScore struct {
	Direction   Direction
	Confidence  float64
	HTFBias     Direction
	StructureOK bool
}
