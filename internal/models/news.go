package models

import "time"

type Importance string

const (
	ImportanceNormal    Importance = "normal"
	ImportanceImportant Importance = "important"
	ImportanceCritical  Importance = "critical"
)

// Weight — вес новости при скоринге.
func (i Importance) Weight() float64 {
	switch i {
	case ImportanceCritical:
		return 3.0
	case ImportanceImportant:
		return 2.0
	default:
		return 1.0
	}
}

type NewsItem struct {
	Title      string
	Importance Importance
	// Sentiment в [-100,100]: <0 медвежья, >0 бычья
	Sentiment   float64
	PublishedAt time.Time
}

// NewsVerdict — вердикт новостной проверки для открытой позиции.
type NewsVerdict string

const (
	NewsContinue     NewsVerdict = "CONTINUE"
	NewsPartialClose NewsVerdict = "PARTIAL_CLOSE"
	NewsCloseNow     NewsVerdict = "CLOSE_NOW"
)

// NewsCheck — итог взвешенного скоринга окна новостей.
type NewsCheck struct {
	Verdict      NewsVerdict
	Score        float64 // нормированный, [-100,100]
	Items        int
	HasCritical  bool
	HasImportant bool
}
