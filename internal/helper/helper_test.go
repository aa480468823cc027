package helper

import "testing"

func TestNormTF(t *testing.T) {
	cases := map[string]string{
		"1H":        "1h",
		"60m":       "1h",
		" candle1h": "1h",
		"240M":      "4h",
		"15m":       "15m",
		"D1":        "1d",
		"3m":        "3m",
	}
	for in, want := range cases {
		if got := NormTF(in); got != want {
			t.Errorf("NormTF(%q) = %q, want %q", in, got, want)
		}
	}
}
