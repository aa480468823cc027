// Package alert решает, шумим ли мы по чекпоинту или наблюдаем молча.
package alert

import (
	"signal_gate/internal/models"
)

type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// ShouldAlert возвращает (нужно ли уведомление, тег причины).
// false = тихий мониторинг: чекпоинт всё равно взводится и логируется.
// При внутренней панике политика fail-open: лучше лишнее уведомление,
// чем молча потерянное важное.
func (p *Policy) ShouldAlert(a models.CheckpointAnalysis, pos *models.Position) (alert bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			alert, reason = true, "policy_error"
		}
	}()

	// 25 — подтверждение хода, 85 — почти у цели: всегда сообщаем
	switch a.Level {
	case 25:
		return true, "checkpoint_confirm"
	case 85:
		return true, "near_target"
	}

	if a.News.HasCritical {
		return true, "critical_news"
	}
	if a.News.HasImportant && newsAgainst(a.News.Score, pos.Direction) {
		return true, "important_news_contra"
	}

	if a.StructureBroken {
		return true, "structure_broken"
	}
	if a.HTFBiasChanged {
		return true, "htf_bias_changed"
	}
	if a.ConfidenceDelta < -10 {
		return true, "confidence_drop"
	}

	return false, ""
}

// сентимент противоречит позиции
func newsAgainst(score float64, dir models.Direction) bool {
	if dir.IsLong() {
		return score < 0
	}
	return score > 0
}
