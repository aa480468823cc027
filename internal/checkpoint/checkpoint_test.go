package checkpoint

import (
	"math"
	"testing"

	"signal_gate/internal/models"
)

func TestPrice(t *testing.T) {
	if got := Price(100, 110, 0.25, models.DirBuy); got != 102.5 {
		t.Errorf("long: got %v, want 102.5", got)
	}
	if got := Price(100, 90, 0.25, models.DirSell); got != 97.5 {
		t.Errorf("short: got %v, want 97.5", got)
	}
	if got := Price(100, 110, 0.85, models.DirStrongBuy); math.Abs(got-108.5) > 1e-9 {
		t.Errorf("strong long: got %v, want 108.5", got)
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		entry, tp1, cur float64
		dir             models.Direction
		want            float64
	}{
		{100, 110, 105, models.DirBuy, 50},
		{100, 110, 100, models.DirBuy, 0},
		{100, 110, 110, models.DirBuy, 100},
		{100, 110, 120, models.DirBuy, 100}, // кламп сверху
		{100, 110, 95, models.DirBuy, 0},    // кламп снизу
		{100, 90, 95, models.DirSell, 50},
		{100, 90, 85, models.DirSell, 100},
		{100, 90, 105, models.DirSell, 0},
		{44000, 43000, 43150, models.DirStrongSell, 85},
	}
	for _, tc := range cases {
		got := Progress(tc.entry, tc.tp1, tc.cur, tc.dir)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Progress(%v,%v,%v,%s) = %v, want %v",
				tc.entry, tc.tp1, tc.cur, tc.dir, got, tc.want)
		}
	}
}

func TestProgress_DegenerateTarget(t *testing.T) {
	// tp1 по неправильную сторону от entry — прогресса нет
	if got := Progress(100, 100, 105, models.DirBuy); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		progress float64
		fired    [4]bool
		want     int
		ok       bool
	}{
		{10, [4]bool{}, 0, false},
		{25, [4]bool{}, 25, true},
		{60, [4]bool{}, 25, true}, // самый низкий из невзведённых
		{60, [4]bool{true, false, false, false}, 50, true},
		{90, [4]bool{true, true, true, false}, 85, true},
		{100, [4]bool{true, true, true, true}, 0, false},
		{24.99, [4]bool{}, 0, false},
	}
	for _, tc := range cases {
		got, ok := Next(tc.progress, tc.fired)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Next(%v,%v) = (%d,%v), want (%d,%v)",
				tc.progress, tc.fired, got, ok, tc.want, tc.ok)
		}
	}
}
