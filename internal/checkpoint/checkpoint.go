// Package checkpoint — чистая математика прогресса позиции к tp1.
package checkpoint

import "signal_gate/internal/models"

// Price — цена уровня pct (доля 0..1) на отрезке entry→tp1.
func Price(entry, tp1, pct float64, dir models.Direction) float64 {
	if dir.IsLong() {
		return entry + (tp1-entry)*pct
	}
	return entry - (entry-tp1)*pct
}

// Progress — пройденный путь entry→tp1 в процентах, клампится в [0,100].
func Progress(entry, tp1, current float64, dir models.Direction) float64 {
	dist := tp1 - entry
	if !dir.IsLong() {
		dist = entry - tp1
	}
	if dist <= 0 {
		return 0
	}
	done := current - entry
	if !dir.IsLong() {
		done = entry - current
	}
	pct := done / dist * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Next — первый (наименьший) ещё не взведённый уровень, достигнутый
// текущим прогрессом. ok=false если прогресс ниже 25 или всё уже взведено.
func Next(progress float64, fired [4]bool) (int, bool) {
	for i, level := range models.CheckpointLevels {
		if fired[i] {
			continue
		}
		if progress >= float64(level) {
			return level, true
		}
	}
	return 0, false
}

// Index — позиция уровня в CheckpointLevels, -1 если уровень неизвестен.
func Index(level int) int {
	for i, l := range models.CheckpointLevels {
		if l == level {
			return i
		}
	}
	return -1
}
