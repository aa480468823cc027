package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"signal_gate/internal/market"
	"signal_gate/internal/modules/config"
	"signal_gate/internal/modules/health"
	"signal_gate/internal/modules/postgres"
	"signal_gate/internal/monitor"
	"signal_gate/internal/notify"
	"signal_gate/pkg/logger"
	"signal_gate/pkg/tracing"
)

const serviceName = "signal_gate"

func main() {
	if err := logger.Init(serviceName); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context { return context.Background() },
		),
		config.Module(),
		postgres.Module(),
		health.Module(),
		market.Module(),
		notify.Module(),
		monitor.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}

	tracing.SetServiceName(serviceName)
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
