package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_gate/internal/gate"
	"signal_gate/internal/models"
)

// gatecheck прогоняет пачку сигнальных контекстов через гейты без
// запуска сервиса. Удобно для разбора "почему сигнал не прошёл".
//
// Формат файла (по умолчанию .gatecheck.yaml в текущей директории):
//
//	signals:
//	  - symbol: BTC-USDT
//	    timeframe: 1h
//	    direction: BUY
//	    raw_confidence: 72
//	    market_state: OPEN
//	  - symbol: ETH-USDT
//	    timeframe: 1h
//	    direction: STRONG_SELL
//	    raw_confidence: 65
//	    market_state: OPEN

type result struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	Admitted  bool   `yaml:"admitted"`
	Reason    string `yaml:"reason,omitempty"`
}

func loadContexts() ([]models.SignalContext, error) {
	viper.SetConfigName(".gatecheck")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if len(os.Args) > 1 {
		viper.SetConfigFile(os.Args[1])
	}
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	// через yaml, чтобы не заводить mapstructure-теги на контексте
	raw := viper.Get("signals")
	if raw == nil {
		return nil, errors.New("has no signals in config")
	}
	bs, err := yaml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "re-marshal signals")
	}
	var ctxs []models.SignalContext
	if err := yaml.Unmarshal(bs, &ctxs); err != nil {
		return nil, errors.Wrap(err, "decode signals")
	}
	return ctxs, nil
}

func main() {
	ctxs, err := loadContexts()
	if err != nil {
		panic(fmt.Errorf("load contexts: %w", err))
	}

	gates := gate.NewEvaluator()
	results := make([]result, 0, len(ctxs))
	blocked := 0
	for _, sc := range ctxs {
		ok, reason := gates.Admit(sc)
		if !ok {
			blocked++
		}
		results = append(results, result{
			Symbol:    sc.Symbol,
			Timeframe: sc.Timeframe,
			Admitted:  ok,
			Reason:    reason,
		})
	}

	out, err := yaml.Marshal(results)
	if err != nil {
		panic(fmt.Errorf("marshal results: %w", err))
	}
	fmt.Print(string(out))
	fmt.Printf("total %d, blocked %d\n", len(results), blocked)
}
