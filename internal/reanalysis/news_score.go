package reanalysis

import "signal_gate/internal/models"

// Окна новостей: на чекпоинте смотрим короче, чем при генерации сигнала.
const (
	CheckpointLookback = 6  // часов
	SignalLookback     = 24 // часов
)

// ScoreNews — взвешенный сентимент окна новостей, нормированный в [-100,100].
// Вес: critical ×3, important ×2, normal ×1.
func ScoreNews(items []models.NewsItem) float64 {
	var sum, weights float64
	for _, it := range items {
		w := it.Importance.Weight()
		sum += it.Sentiment * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	score := sum / weights
	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}

// CheckNews — вердикт по открытой позиции. Для лонга негативный скор
// против позиции; для шорта зеркально. Пустое окно = CONTINUE.
func CheckNews(items []models.NewsItem, dir models.Direction) models.NewsCheck {
	res := models.NewsCheck{Verdict: models.NewsContinue, Items: len(items)}
	if len(items) == 0 {
		return res
	}
	for _, it := range items {
		switch it.Importance {
		case models.ImportanceCritical:
			res.HasCritical = true
		case models.ImportanceImportant:
			res.HasImportant = true
		}
	}
	res.Score = ScoreNews(items)

	// скор «против позиции»: для лонга это отрицательный, для шорта положительный
	against := res.Score
	if !dir.IsLong() {
		against = -against
	}

	switch {
	case against < -30 && res.HasCritical:
		res.Verdict = models.NewsCloseNow
	case against < -30:
		res.Verdict = models.NewsPartialClose
	case against < -10 && res.HasCritical:
		res.Verdict = models.NewsPartialClose
	}
	return res
}
