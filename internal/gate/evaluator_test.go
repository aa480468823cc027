package gate

import (
	"testing"

	"signal_gate/internal/models"
)

func validCtx() models.SignalContext {
	return models.SignalContext{
		Symbol:        "BTC-USDT",
		Timeframe:     "15m",
		Direction:     models.DirBuy,
		RawConfidence: 72,
		MarketState:   models.MarketOpen,
	}
}

func TestAdmit_OK(t *testing.T) {
	e := NewEvaluator()
	ok, reason := e.Admit(validCtx())
	if !ok {
		t.Fatalf("expected admit, blocked by %q", reason)
	}
}

func TestEntry_OrderAndShortCircuit(t *testing.T) {
	e := NewEvaluator()

	// structural check goes first: broken direction masks everything else
	sctx := validCtx()
	sctx.Direction = "LONG"
	sctx.BreakerBlockActive = true
	if _, reason := e.Admit(sctx); reason != "invalid_signal" {
		t.Errorf("expected invalid_signal, got %q", reason)
	}

	cases := []struct {
		name   string
		mut    func(*models.SignalContext)
		reason string
	}{
		{"system degraded", func(c *models.SignalContext) { c.SystemState = models.SystemDegraded }, "system_state"},
		{"maintenance", func(c *models.SignalContext) { c.SystemState = models.SystemMaintenance }, "system_state"},
		{"breaker block", func(c *models.SignalContext) { c.BreakerBlockActive = true }, "breaker_block"},
		{"active signal", func(c *models.SignalContext) { c.ActiveSignalExists = true }, "active_signal"},
		{"cooldown", func(c *models.SignalContext) { c.CooldownActive = true }, "cooldown"},
		{"market halted", func(c *models.SignalContext) { c.MarketState = models.MarketHalted }, "market_closed"},
		{"signature seen", func(c *models.SignalContext) { c.SignatureSeen = true }, "duplicate_signature"},
	}
	for _, tc := range cases {
		sctx := validCtx()
		tc.mut(&sctx)
		ok, reason := e.Admit(sctx)
		if ok || reason != tc.reason {
			t.Errorf("%s: got ok=%v reason=%q, want %q", tc.name, ok, reason, tc.reason)
		}
	}
}

func TestEntry_ConfidenceNeverOverrides(t *testing.T) {
	e := NewEvaluator()
	sctx := validCtx()
	sctx.RawConfidence = 95
	sctx.BreakerBlockActive = true

	if e.EvaluateEntry(sctx) {
		t.Error("breaker block must win regardless of confidence")
	}
	if ok, reason := e.Admit(sctx); ok || reason != "breaker_block" {
		t.Errorf("got ok=%v reason=%q", ok, reason)
	}
}

func TestConfidence_Boundaries(t *testing.T) {
	e := NewEvaluator()
	cases := []struct {
		dir  models.Direction
		conf float64
		pass bool
	}{
		{models.DirBuy, 60.0, true},
		{models.DirBuy, 59.99, false},
		{models.DirSell, 60.0, true},
		{models.DirSell, 59.99, false},
		{models.DirStrongBuy, 70.0, true},
		{models.DirStrongBuy, 69.99, false},
		{models.DirStrongSell, 70.0, true},
		{models.DirStrongSell, 69.99, false},
	}
	for _, tc := range cases {
		sctx := validCtx()
		sctx.Direction = tc.dir
		sctx.RawConfidence = tc.conf
		if got := e.EvaluateConfidence(sctx); got != tc.pass {
			t.Errorf("%s conf=%.2f: got %v, want %v", tc.dir, tc.conf, got, tc.pass)
		}
	}
}

func TestExecution_Blocks(t *testing.T) {
	e := NewEvaluator()
	cases := []struct {
		name   string
		mut    func(*models.SignalContext)
		reason string
	}{
		{"paused", func(c *models.SignalContext) { c.ExecState = models.ExecPaused }, "exec_state"},
		{"disabled", func(c *models.SignalContext) { c.ExecState = models.ExecDisabled }, "exec_state"},
		{"layer down", func(c *models.SignalContext) { c.ExecLayerDown = true }, "exec_layer_down"},
		{"locked", func(c *models.SignalContext) { c.SymbolExecLocked = true }, "symbol_locked"},
		{"no capacity", func(c *models.SignalContext) { c.CapacityExhausted = true }, "no_capacity"},
		{"halt", func(c *models.SignalContext) { c.EmergencyHalt = true }, "emergency_halt"},
	}
	for _, tc := range cases {
		sctx := validCtx()
		tc.mut(&sctx)
		ok, reason := e.Admit(sctx)
		if ok || reason != tc.reason {
			t.Errorf("%s: got ok=%v reason=%q, want %q", tc.name, ok, reason, tc.reason)
		}
	}
}

// Гейты не должны мутировать контекст.
func TestAdmit_NoMutation(t *testing.T) {
	e := NewEvaluator()
	sctx := validCtx()
	before := sctx
	_, _ = e.Admit(sctx)
	if sctx != before {
		t.Error("context mutated by evaluation")
	}
}
