package reanalysis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"signal_gate/internal/models"
	"signal_gate/pkg/logger"
)

func testPosition() *models.Position {
	return &models.Position{
		ID:        1,
		Symbol:    "BTC-USDT",
		Timeframe: "15m",
		Direction: models.DirBuy,
		Entry:     100,
		StopLoss:  98,
		TP1:       110,
		Signal: models.Signal{
			SchemaVersion: models.SignalSchemaVersion,
			Symbol:        "BTC-USDT",
			Direction:     models.DirBuy,
			Confidence:    75,
		},
		SizeFraction: 1.0,
		Status:       models.StatusOpen,
		OpenedAt:     time.Now(),
	}
}

func freshScore(conf float64) models.FreshScore {
	return models.FreshScore{
		Direction:   models.DirBuy,
		Confidence:  conf,
		StructureOK: true,
	}
}

func TestReanalyze_ConfidenceCollapse(t *testing.T) {
	// delta -35 → CLOSE_NOW на любом чекпоинте
	for _, level := range []int{25, 50, 75, 85} {
		a := Reanalyze(testPosition(), 102.5, level, freshScore(40), nil)
		if a.Recommendation != models.RecommendCloseNow {
			t.Errorf("level %d: got %s, want CLOSE_NOW", level, a.Recommendation)
		}
	}
}

func TestReanalyze_MidDropEarlyCheckpoint(t *testing.T) {
	// delta -20 на чекпоинте 50: правила 5/6/7 не совпадают → HOLD
	a := Reanalyze(testPosition(), 105, 50, freshScore(55), nil)
	if a.Recommendation != models.RecommendHold {
		t.Errorf("got %s (%s), want HOLD", a.Recommendation, a.Reasoning)
	}
}

func TestReanalyze_MidDropLateCheckpoint(t *testing.T) {
	a := Reanalyze(testPosition(), 107.5, 75, freshScore(55), nil)
	if a.Recommendation != models.RecommendPartialClose {
		t.Errorf("got %s, want PARTIAL_CLOSE", a.Recommendation)
	}
}

func TestReanalyze_MoveSLWhenIntact(t *testing.T) {
	// delta -2 на 75: RR = (110-107.5)/(107.5-98) ≈ 0.26 < 0.5 → это правило 6...
	// поэтому стоп держим широким через SL: позиция с RR >= 0.5
	pos := testPosition()
	pos.StopLoss = 105 // уже подтянут, риск маленький
	a := Reanalyze(pos, 107.5, 75, freshScore(73), nil)
	if a.Recommendation != models.RecommendMoveSL {
		t.Errorf("got %s (%s), want MOVE_SL", a.Recommendation, a.Reasoning)
	}
}

func TestReanalyze_PoorRRLate(t *testing.T) {
	// delta в норме не проходит (−7), RR < 0.5 на 85 → PARTIAL_CLOSE
	a := Reanalyze(testPosition(), 108.5, 85, freshScore(68), nil)
	if a.RiskReward >= 0.5 {
		t.Fatalf("fixture broken: rr=%v", a.RiskReward)
	}
	if a.Recommendation != models.RecommendPartialClose {
		t.Errorf("got %s, want PARTIAL_CLOSE", a.Recommendation)
	}
}

func TestReanalyze_NoChangeEarly(t *testing.T) {
	// 25-й чекпоинт, всё стабильно: MOVE_SL не для 25 → HOLD
	a := Reanalyze(testPosition(), 102.5, 25, freshScore(75), nil)
	if a.Recommendation != models.RecommendHold {
		t.Errorf("got %s, want HOLD", a.Recommendation)
	}
}

func TestReanalyze_StructureBrokenWins(t *testing.T) {
	sc := freshScore(75)
	sc.Direction = models.DirSell // разворот против лонга
	a := Reanalyze(testPosition(), 105, 50, sc, nil)
	if !a.StructureBroken || a.Recommendation != models.RecommendCloseNow {
		t.Errorf("got broken=%v rec=%s", a.StructureBroken, a.Recommendation)
	}
}

func TestReanalyze_HTFBiasChange(t *testing.T) {
	sc := freshScore(75)
	sc.HTFBias = models.DirSell
	a := Reanalyze(testPosition(), 105, 50, sc, nil)
	if !a.HTFBiasChanged || a.Recommendation != models.RecommendCloseNow {
		t.Errorf("got htf=%v rec=%s", a.HTFBiasChanged, a.Recommendation)
	}
}

func TestReanalyze_NewsVetoPrecedesTechnical(t *testing.T) {
	// технически всё отлично, но critical-негатив перебивает
	items := []models.NewsItem{{Importance: models.ImportanceCritical, Sentiment: -60}}
	a := Reanalyze(testPosition(), 105, 50, freshScore(80), items)
	if a.Recommendation != models.RecommendCloseNow {
		t.Errorf("got %s, want CLOSE_NOW", a.Recommendation)
	}
}

// --- деграднутый режим ---

type failingScores struct{}

func (failingScores) Score(context.Context, string, string) (models.FreshScore, error) {
	return models.FreshScore{}, errors.New("scorer down")
}

type staticNews struct{ items []models.NewsItem }

func (s staticNews) Recent(context.Context, string, time.Duration) ([]models.NewsItem, error) {
	return s.items, nil
}

func TestReanalyzeLive_DegradedWarnClose(t *testing.T) {
	e := NewEngine(failingScores{}, nil, FailWarnClose)
	a := e.ReanalyzeLive(context.Background(), testPosition(), 105, 50)
	if !a.Degraded || a.Recommendation != models.RecommendCloseNow {
		t.Errorf("got degraded=%v rec=%s", a.Degraded, a.Recommendation)
	}
}

func TestReanalyzeLive_DegradedHold(t *testing.T) {
	e := NewEngine(failingScores{}, nil, FailHold)
	a := e.ReanalyzeLive(context.Background(), testPosition(), 105, 50)
	if !a.Degraded || a.Recommendation != models.RecommendHold {
		t.Errorf("got degraded=%v rec=%s", a.Degraded, a.Recommendation)
	}
}

func TestReanalyzeLive_DegradedNewsStillVetoes(t *testing.T) {
	np := staticNews{items: []models.NewsItem{{
		Importance:  models.ImportanceCritical,
		Sentiment:   -70,
		PublishedAt: time.Now(),
	}}}
	e := NewEngine(failingScores{}, np, FailHold)
	a := e.ReanalyzeLive(context.Background(), testPosition(), 105, 50)
	if a.Recommendation != models.RecommendCloseNow {
		t.Errorf("got %s, want CLOSE_NOW", a.Recommendation)
	}
}

type erroringNews struct{}

func (erroringNews) Recent(context.Context, string, time.Duration) ([]models.NewsItem, error) {
	return nil, errors.New("feed down")
}

type staticScores struct{ s models.FreshScore }

func (s staticScores) Score(context.Context, string, string) (models.FreshScore, error) {
	return s.s, nil
}

// Новостной слой fail-open: ошибка фида = нет новостей, не блокируем.
func TestReanalyzeLive_NewsFailOpen(t *testing.T) {
	e := NewEngine(staticScores{freshScore(75)}, erroringNews{}, FailWarnClose)
	a := e.ReanalyzeLive(context.Background(), testPosition(), 102.5, 25)
	if a.News.Verdict != models.NewsContinue {
		t.Errorf("got %s, want CONTINUE", a.News.Verdict)
	}
	if a.Degraded {
		t.Error("news failure must not mark analysis degraded")
	}
}

func TestMain(m *testing.M) {
	logger.InfoLogger = zap.NewNop()
	os.Exit(m.Run())
}
