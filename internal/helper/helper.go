package helper

import "strings"

// NormTF приводит таймфрейм к каноничному виду: сигналы приходят
// из разных источников и пишут "1H", "60m", "candle15m" как попало.
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "15m":
		return "15m"
	case "5m":
		return "5m"
	case "1d", "d1":
		return "1d"
	default:
		return s
	}
}
