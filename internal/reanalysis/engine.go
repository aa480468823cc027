package reanalysis

import (
	"context"
	"fmt"
	"time"

	"signal_gate/internal/models"
	"signal_gate/internal/news"
	"signal_gate/pkg/logger"
)

// ScoreSource — свежий скоринг позиции (внешний коллаборатор).
type ScoreSource interface {
	Score(ctx context.Context, symbol, timeframe string) (models.FreshScore, error)
}

// FailMode — что делать, когда fresh score недоступен.
// Новостной слой, наоборот, всегда fail-open (CONTINUE).
type FailMode string

const (
	// FailWarnClose — консервативный дефолт: непроверяемая позиция
	// не считается безопасной.
	FailWarnClose FailMode = "warn_close"
	FailHold      FailMode = "hold"
)

type Engine struct {
	scores   ScoreSource
	news     news.Provider
	failMode FailMode
}

func NewEngine(scores ScoreSource, np news.Provider, failMode FailMode) *Engine {
	if failMode != FailHold {
		failMode = FailWarnClose
	}
	return &Engine{scores: scores, news: np, failMode: failMode}
}

// ReanalyzeLive тянет свежий скор и новости и строит анализ чекпоинта.
func (e *Engine) ReanalyzeLive(ctx context.Context, pos *models.Position, price float64, level int) models.CheckpointAnalysis {
	items := e.recentNews(ctx, pos.Symbol)

	score, err := e.scores.Score(ctx, pos.Symbol, pos.Timeframe)
	if err != nil {
		logger.Error("reanalysis: fresh score unavailable for %s: %v", pos.Symbol, err)
		return e.degraded(pos, price, level, items)
	}
	return Reanalyze(pos, price, level, score, items)
}

func (e *Engine) recentNews(ctx context.Context, symbol string) []models.NewsItem {
	if e.news == nil {
		return nil
	}
	items, err := e.news.Recent(ctx, symbol, CheckpointLookback*time.Hour)
	if err != nil {
		// новости fail-open: ошибка выборки = нет новостей
		logger.Error("reanalysis: news fetch failed for %s: %v", symbol, err)
		return nil
	}
	return items
}

// degraded — скоринг недоступен: новостное вето всё ещё работает,
// дальше действует failMode.
func (e *Engine) degraded(pos *models.Position, price float64, level int, items []models.NewsItem) models.CheckpointAnalysis {
	a := baseAnalysis(pos, price, level)
	a.ConfidenceAfter = a.ConfidenceBefore
	a.News = CheckNews(items, pos.Direction)
	a.Degraded = true

	switch {
	case a.News.Verdict == models.NewsCloseNow:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = fmt.Sprintf("news veto (score %.1f, critical)", a.News.Score)
	case a.News.Verdict == models.NewsPartialClose:
		a.Recommendation = models.RecommendPartialClose
		a.Reasoning = fmt.Sprintf("news against position (score %.1f)", a.News.Score)
	case e.failMode == FailWarnClose:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = "reanalysis unavailable, position unverifiable"
	default:
		a.Recommendation = models.RecommendHold
		a.Reasoning = "reanalysis unavailable, holding per config"
	}
	return a
}

// Reanalyze — чистая часть: матрица решений по первому совпавшему правилу.
func Reanalyze(pos *models.Position, price float64, level int, score models.FreshScore, items []models.NewsItem) models.CheckpointAnalysis {
	a := baseAnalysis(pos, price, level)
	a.ConfidenceAfter = score.Confidence
	a.ConfidenceDelta = score.Confidence - a.ConfidenceBefore
	a.HTFBiasChanged = htfBiasChanged(pos, score)
	a.StructureBroken = structureBroken(pos, score)
	a.News = CheckNews(items, pos.Direction)

	late := level == 75 || level == 85
	mid := level == 50 || late

	switch {
	// новостные проверки предшествуют техническим и перебивают их
	case a.News.Verdict == models.NewsCloseNow:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = fmt.Sprintf("news veto (score %.1f, critical)", a.News.Score)
	case a.News.Verdict == models.NewsPartialClose:
		a.Recommendation = models.RecommendPartialClose
		a.Reasoning = fmt.Sprintf("news against position (score %.1f)", a.News.Score)
	case a.HTFBiasChanged:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = "HTF bias flipped against position"
	case a.StructureBroken:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = "market structure broken"
	case a.ConfidenceDelta < -30:
		a.Recommendation = models.RecommendCloseNow
		a.Reasoning = fmt.Sprintf("confidence collapsed (%+.1f)", a.ConfidenceDelta)
	case a.ConfidenceDelta < -15 && late:
		a.Recommendation = models.RecommendPartialClose
		a.Reasoning = fmt.Sprintf("confidence fading near target (%+.1f)", a.ConfidenceDelta)
	case a.RiskReward < 0.5 && late:
		a.Recommendation = models.RecommendPartialClose
		a.Reasoning = fmt.Sprintf("poor remaining R:R (%.2f)", a.RiskReward)
	case a.ConfidenceDelta >= -5 && mid:
		a.Recommendation = models.RecommendMoveSL
		a.Reasoning = "confidence intact, move stop to breakeven"
	default:
		a.Recommendation = models.RecommendHold
		a.Reasoning = "no actionable change"
	}
	return a
}

func baseAnalysis(pos *models.Position, price float64, level int) models.CheckpointAnalysis {
	a := models.CheckpointAnalysis{
		Level:            level,
		CurrentPrice:     price,
		ConfidenceBefore: pos.Signal.Confidence,
	}
	if price > 0 {
		var reward, risk float64
		if pos.Direction.IsLong() {
			reward = pos.TP1 - price
			risk = price - pos.StopLoss
		} else {
			reward = price - pos.TP1
			risk = pos.StopLoss - price
		}
		if reward < 0 {
			reward = 0
		}
		a.DistToTPPct = reward / price * 100
		if risk > 0 {
			a.DistToSLPct = risk / price * 100
			a.RiskReward = reward / risk
		}
	}
	return a
}

func htfBiasChanged(pos *models.Position, score models.FreshScore) bool {
	if score.HTFBias == models.DirNone {
		return false
	}
	orig := pos.Signal.HTFBias
	if orig == models.DirNone {
		orig = pos.Direction
	}
	return score.HTFBias.IsLong() != orig.IsLong()
}

// Слом структуры = разворот направления между исходным сигналом и свежим
// скором, либо явный structure-invalid от источника.
func structureBroken(pos *models.Position, score models.FreshScore) bool {
	if score.Direction.Valid() && score.Direction.IsLong() != pos.Direction.IsLong() {
		return true
	}
	return !score.StructureOK
}
