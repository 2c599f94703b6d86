package analysis

import (
	"context"
	"testing"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

func multiConfig() MultiOutcomeConfig {
	return MultiOutcomeConfig{
		Threshold:          0.05,
		BaselineMultiplier: 1.5,
		FeePerSide:         0.02,
		SlippageCents:      0.5,
		MinProfitCents:     5.0,
		DivergencePolicy:   PolicyExclude,
	}
}

func exclusiveEvent(set *models.SnapshotSet, yes ...float64) *models.Event {
	ids := make([]string, len(yes))
	for i, y := range yes {
		id := string(rune('a' + i))
		addBinary(set, id, y, 1-y)
		ids[i] = id
	}
	ev := &models.Event{
		ID:        "e1",
		Title:     "who wins",
		SumBound:  1.0,
		Exclusive: true,
		MarketIDs: ids,
	}
	set.Events["e1"] = ev
	return ev
}

func TestMultiOutcomeGap(t *testing.T) {
	set := emptySet(1)
	exclusiveEvent(set, 0.30, 0.30, 0.30)

	a := NewMultiOutcome(multiConfig())
	out := a.Analyze(context.Background(), set, stubView{})
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	c := out[0]
	if c.DedupKey != "multi:long:e1" {
		t.Fatalf("unexpected dedup key %q", c.DedupKey)
	}
	if c.Value < 0.099 || c.Value > 0.101 {
		t.Fatalf("unexpected gap %v", c.Value)
	}
	if len(c.MarketIDs) != 3 {
		t.Fatalf("expected all legs listed, got %v", c.MarketIDs)
	}
}

func TestMultiOutcomeOverpricedSet(t *testing.T) {
	set := emptySet(1)
	exclusiveEvent(set, 0.55, 0.55)

	// Two legs summing to 1.10 against a 4 point norm: selling the set, via
	// buying every complement, locks the overshoot in.
	view := stubView{averages: map[string]float64{baseline.EventGapKey("e1"): 0.04}}

	a := NewMultiOutcome(multiConfig())
	out := a.Analyze(context.Background(), set, view)
	if len(out) != 1 {
		t.Fatalf("overpriced set not flagged")
	}
	c := out[0]
	if c.DedupKey != "multi:short:e1" {
		t.Fatalf("unexpected dedup key %q", c.DedupKey)
	}
	if c.Value < 0.099 || c.Value > 0.101 {
		t.Fatalf("unexpected gap %v", c.Value)
	}
	// Complement cost is 2 - 1.10 = 0.90: gross 10c less 1.8c fees and 0.5c
	// slippage.
	if c.NetProfitCents < 7.69 || c.NetProfitCents > 7.71 {
		t.Fatalf("unexpected net %v", c.NetProfitCents)
	}
}

func TestMultiOutcomeBaselineSuppression(t *testing.T) {
	set := emptySet(1)
	exclusiveEvent(set, 0.30, 0.30, 0.30)

	// The event historically trades 8 points wide, so a 10 point gap is
	// within its structural norm.
	view := stubView{averages: map[string]float64{baseline.EventGapKey("e1"): 0.08}}

	a := NewMultiOutcome(multiConfig())
	if out := a.Analyze(context.Background(), set, view); len(out) != 0 {
		t.Fatalf("structurally wide event alerted: %+v", out)
	}

	// Against a tight history the same gap is anomalous.
	view = stubView{averages: map[string]float64{baseline.EventGapKey("e1"): 0.02}}
	if out := a.Analyze(context.Background(), set, view); len(out) != 1 {
		t.Fatalf("anomalous gap suppressed")
	}
}

func TestMultiOutcomeMissingLeg(t *testing.T) {
	set := emptySet(1)
	exclusiveEvent(set, 0.30, 0.30, 0.30)
	delete(set.Snapshots, "b")

	a := NewMultiOutcome(multiConfig())
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("partial event set priced: %+v", out)
	}
}

func TestMultiOutcomeNonExclusiveIgnored(t *testing.T) {
	set := emptySet(1)
	ev := exclusiveEvent(set, 0.30, 0.30, 0.30)
	ev.Exclusive = false

	a := NewMultiOutcome(multiConfig())
	if out := a.Analyze(context.Background(), set, stubView{}); len(out) != 0 {
		t.Fatalf("non-exclusive event treated as a set")
	}
}
