package analysis

import (
	"context"
	"math"
	"testing"
)

func arbConfig() ArbitrageConfig {
	return ArbitrageConfig{
		Threshold:        0.01,
		FeePerSide:       0.02,
		SlippageCents:    0.5,
		MinProfitCents:   0.5,
		DivergencePolicy: PolicyExclude,
	}
}

func TestArbitrageUnderpricedSet(t *testing.T) {
	set := emptySet(1)
	addBinary(set, "m1", 0.48, 0.49)

	a := NewArbitrage(arbConfig())
	out := a.Analyze(context.Background(), set, stubView{})
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	c := out[0]
	if c.DedupKey != "arb:long:m1" {
		t.Fatalf("unexpected dedup key %q", c.DedupKey)
	}
	// 3c gross, minus 2% fees on 0.97 legs and 0.5c slippage.
	wantNet := 3.0 - 0.02*0.97*100 - 0.5
	if math.Abs(c.NetProfitCents-wantNet) > 1e-9 {
		t.Fatalf("unexpected net %v, want %v", c.NetProfitCents, wantNet)
	}
}

func TestArbitrageOverpricedSet(t *testing.T) {
	set := emptySet(1)
	addBinary(set, "m1", 0.60, 0.55)

	a := NewArbitrage(arbConfig())
	out := a.Analyze(context.Background(), set, stubView{})
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	if out[0].DedupKey != "arb:short:m1" {
		t.Fatalf("unexpected dedup key %q", out[0].DedupKey)
	}
}

func TestArbitrageFeesEatThinEdge(t *testing.T) {
	set := emptySet(1)
	addBinary(set, "m1", 0.48, 0.49)

	cfg := arbConfig()
	cfg.MinProfitCents = 5.0
	a := NewArbitrage(cfg)
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("thin edge should not survive the profit floor: %+v", out)
	}
}

func TestArbitrageFairlyPricedQuiet(t *testing.T) {
	set := emptySet(1)
	addBinary(set, "m1", 0.50, 0.50)

	a := NewArbitrage(arbConfig())
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("fair market flagged: %+v", out)
	}
}

func TestArbitrageDivergencePolicy(t *testing.T) {
	set := emptySet(1)
	addBinary(set, "m1", 0.48, 0.49)
	set.Snapshots["m1"].Divergent = true

	a := NewArbitrage(arbConfig())
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("exclude policy leaked divergent snapshot")
	}

	cfg := arbConfig()
	cfg.DivergencePolicy = PolicyDownweight
	a = NewArbitrage(cfg)
	out := a.Analyze(context.Background(), set, stubView{})
	if len(out) != 1 {
		t.Fatalf("downweight policy dropped candidate")
	}
	if !out[0].Divergent {
		t.Fatalf("downweighted candidate missing divergence mark")
	}
}

func TestArbitragePartialPricesSkipped(t *testing.T) {
	set := emptySet(1)
	m := addBinary(set, "m1", 0.48, 0.49)
	delete(set.Snapshots["m1"].Prices, m.Outcomes[1].ID)

	a := NewArbitrage(arbConfig())
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("incomplete price set treated as arbitrage")
	}
}
