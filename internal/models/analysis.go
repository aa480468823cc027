package models

type Recommendation string

const (
	RecommendHold         Recommendation = "HOLD"
	RecommendMoveSL       Recommendation = "MOVE_SL" // стоп в безубыток
	RecommendPartialClose Recommendation = "PARTIAL_CLOSE"
	RecommendCloseNow     Recommendation = "CLOSE_NOW"
)

// CheckpointAnalysis — результат повторного анализа позиции на чекпоинте.
type CheckpointAnalysis struct {
	Level        int
	CurrentPrice float64

	DistToTPPct float64 // сколько осталось до tp1, в % от цены
	DistToSLPct float64

	ConfidenceBefore float64
	ConfidenceAfter  float64
	ConfidenceDelta  float64

	HTFBiasChanged  bool
	StructureBroken bool
	RiskReward      float64 // остаток reward / остаток risk

	News NewsCheck

	Recommendation Recommendation
	Reasoning      string
	Degraded       bool // fresh score был недоступен
}
