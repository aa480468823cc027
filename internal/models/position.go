package models

import "time"

type PositionStatus string

const (
	StatusOpen    PositionStatus = "OPEN"
	StatusPartial PositionStatus = "PARTIAL"
	StatusClosed  PositionStatus = "CLOSED" // терминальный
)

type Outcome string

const (
	OutcomeTPHit       Outcome = "TP_HIT"
	OutcomeSLHit       Outcome = "SL_HIT"
	OutcomeManualClose Outcome = "MANUAL_CLOSE"
	OutcomeEarlyExit   Outcome = "EARLY_EXIT"
)

// CheckpointLevels — фиксированные уровни прогресса entry→tp1, в процентах.
var CheckpointLevels = [4]int{25, 50, 75, 85}

// Position — отслеживаемая позиция. SizeFraction только уменьшается
// (partial close), флаги чекпоинтов только взводятся.
type Position struct {
	ID        int64
	Symbol    string
	Timeframe string
	Direction Direction
	Entry     float64
	StopLoss  float64
	TP1       float64
	TP2       float64
	TP3       float64

	SizeFraction float64 // (0,1], 1.0 = полный размер
	Checkpoints  [4]bool // 25/50/75/85, false→true один раз
	Status       PositionStatus

	Signal Signal // оригинальный сигнал, read-only

	OpenedAt  time.Time
	CheckedAt time.Time
}

// CheckpointFired — взведён ли уровень (25/50/75/85).
func (p *Position) CheckpointFired(level int) bool {
	for i, l := range CheckpointLevels {
		if l == level {
			return p.Checkpoints[i]
		}
	}
	return false
}

func (p *Position) FiredCount() int {
	n := 0
	for _, f := range p.Checkpoints {
		if f {
			n++
		}
	}
	return n
}

// CheckpointAlert — append-only запись о срабатывании чекпоинта.
type CheckpointAlert struct {
	ID           int64
	PositionID   int64
	Level        int
	TriggerPrice float64

	ConfidenceBefore float64
	ConfidenceAfter  float64
	ConfidenceDelta  float64
	StructureBroken  bool
	HTFBiasChanged   bool
	RiskReward       float64

	Recommendation Recommendation
	Reasoning      string
	Action         AlertAction

	CreatedAt time.Time
}

type AlertAction string

const (
	ActionAlerted   AlertAction = "ALERTED"
	ActionMonitored AlertAction = "MONITORED" // тихо, без уведомления
)

// PositionHistory пишется ровно один раз, при переходе в CLOSED.
type PositionHistory struct {
	ID         int64
	PositionID int64
	Symbol     string
	Direction  Direction
	Entry      float64
	Exit       float64
	PnlPercent float64
	Outcome    Outcome
	Duration   time.Duration
	Fired      int // чекпоинтов сработало
	Alerted    int // уведомлений отправлено
	ClosedAt   time.Time
}

// Stats — агрегат по закрытым позициям.
type Stats struct {
	Open     int
	Closed   int
	Wins     int
	Losses   int
	WinRate  float64 // в процентах
	AvgPnl   float64
	TotalPnl float64
	Alerts   int64
}
