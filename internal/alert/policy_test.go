package alert

import (
	"testing"

	"signal_gate/internal/models"
)

func long() *models.Position {
	return &models.Position{Direction: models.DirBuy}
}

func TestShouldAlert_AlwaysAtConfirmAndNearTarget(t *testing.T) {
	p := NewPolicy()
	for _, level := range []int{25, 85} {
		ok, _ := p.ShouldAlert(models.CheckpointAnalysis{Level: level}, long())
		if !ok {
			t.Errorf("level %d: expected alert", level)
		}
	}
}

func TestShouldAlert_QuietMidCheckpoints(t *testing.T) {
	p := NewPolicy()
	for _, level := range []int{50, 75} {
		a := models.CheckpointAnalysis{Level: level, ConfidenceDelta: -3}
		ok, reason := p.ShouldAlert(a, long())
		if ok {
			t.Errorf("level %d: unexpected alert (%s)", level, reason)
		}
	}
}

func TestShouldAlert_CriticalNews(t *testing.T) {
	p := NewPolicy()
	a := models.CheckpointAnalysis{
		Level: 50,
		News:  models.NewsCheck{HasCritical: true, Score: 40},
	}
	ok, reason := p.ShouldAlert(a, long())
	if !ok || reason != "critical_news" {
		t.Errorf("got ok=%v reason=%q", ok, reason)
	}
}

func TestShouldAlert_ImportantNewsOnlyWhenContradicting(t *testing.T) {
	p := NewPolicy()

	a := models.CheckpointAnalysis{
		Level: 50,
		News:  models.NewsCheck{HasImportant: true, Score: -20},
	}
	if ok, _ := p.ShouldAlert(a, long()); !ok {
		t.Error("important negative news against a long should alert")
	}

	a.News.Score = 20 // по направлению позиции — молчим
	if ok, reason := p.ShouldAlert(a, long()); ok {
		t.Errorf("unexpected alert: %s", reason)
	}

	// для шорта зеркально
	short := &models.Position{Direction: models.DirSell}
	if ok, _ := p.ShouldAlert(a, short); !ok {
		t.Error("important positive news against a short should alert")
	}
}

func TestShouldAlert_TechnicalTriggers(t *testing.T) {
	p := NewPolicy()
	cases := []struct {
		name string
		a    models.CheckpointAnalysis
		want string
	}{
		{"structure", models.CheckpointAnalysis{Level: 50, StructureBroken: true}, "structure_broken"},
		{"htf", models.CheckpointAnalysis{Level: 50, HTFBiasChanged: true}, "htf_bias_changed"},
		{"conf drop", models.CheckpointAnalysis{Level: 75, ConfidenceDelta: -12}, "confidence_drop"},
	}
	for _, tc := range cases {
		ok, reason := p.ShouldAlert(tc.a, long())
		if !ok || reason != tc.want {
			t.Errorf("%s: got ok=%v reason=%q", tc.name, ok, reason)
		}
	}
}

// nil-позиция не должна ронять монитор: fail-open.
func TestShouldAlert_FailOpen(t *testing.T) {
	p := NewPolicy()
	a := models.CheckpointAnalysis{
		Level: 50,
		News:  models.NewsCheck{HasImportant: true, Score: -20},
	}
	ok, reason := p.ShouldAlert(a, nil)
	if !ok || reason != "policy_error" {
		t.Errorf("got ok=%v reason=%q, want fail-open", ok, reason)
	}
}
