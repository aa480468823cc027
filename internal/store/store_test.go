package store

import (
	"math"
	"testing"

	"signal_gate/internal/models"
)

func TestPnlPercent(t *testing.T) {
	cases := []struct {
		dir         models.Direction
		entry, exit float64
		frac        float64
		want        float64
	}{
		{models.DirBuy, 40000, 42000, 1.0, 5.0},
		{models.DirSell, 44000, 43000, 1.0, 2.2727},
		{models.DirBuy, 100, 90, 1.0, -10.0},
		{models.DirBuy, 40000, 42000, 0.4, 2.0}, // остаток после partial
		{models.DirStrongSell, 100, 110, 1.0, -10.0},
	}
	for _, tc := range cases {
		got := PnlPercent(tc.dir, tc.entry, tc.exit, tc.frac)
		if math.Abs(got-tc.want) > 0.01 {
			t.Errorf("PnlPercent(%s,%v,%v,%v) = %v, want %v",
				tc.dir, tc.entry, tc.exit, tc.frac, got, tc.want)
		}
	}
}
