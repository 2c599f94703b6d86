package source

import (
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newIndexedStream(t *testing.T) *StreamClient {
	t.Helper()
	c := NewStreamClient("ws://unused", time.Second, time.Second, testLogger(t))
	c.tokens = map[string]tokenRef{
		"tok-yes": {marketID: "m1", outcomeID: "m1-yes"},
		"tok-no":  {marketID: "m1", outcomeID: "m1-no"},
	}
	return c
}

func TestStreamApplyMergesOutcomePrices(t *testing.T) {
	c := newIndexedStream(t)

	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "0.48"})
	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-no", Price: "0.51"})

	r, ok := c.Latest("m1")
	if !ok {
		t.Fatalf("no reading for m1")
	}
	if r.Prices["m1-yes"] != 0.48 || r.Prices["m1-no"] != 0.51 {
		t.Fatalf("prices not merged: %+v", r.Prices)
	}
	if r.Seq != 2 {
		t.Fatalf("seq %d, want 2", r.Seq)
	}
}

func TestStreamApplySequenceMonotonic(t *testing.T) {
	c := newIndexedStream(t)

	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "0.48"})
	c.apply(streamFrame{EventType: "last_trade_price", AssetID: "tok-yes", Price: "0.52"})

	r, _ := c.Latest("m1")
	if r.Prices["m1-yes"] != 0.52 {
		t.Fatalf("later frame lost: %v", r.Prices["m1-yes"])
	}

	first, _ := c.Latest("m1")
	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-no", Price: "0.47"})
	second, _ := c.Latest("m1")
	if second.Seq <= first.Seq {
		t.Fatalf("sequence not monotonic: %d then %d", first.Seq, second.Seq)
	}
}

func TestStreamApplyDropsJunk(t *testing.T) {
	c := newIndexedStream(t)

	c.apply(streamFrame{EventType: "book", AssetID: "tok-yes", Price: "0.48"})
	c.apply(streamFrame{EventType: "price_change", AssetID: "unknown", Price: "0.48"})
	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "1.7"})
	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "not-a-price"})

	if _, ok := c.Latest("m1"); ok {
		t.Fatalf("junk frames produced a reading")
	}
}

func TestStreamApplyDropsStaleReplay(t *testing.T) {
	c := newIndexedStream(t)

	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "0.48", Timestamp: "1764000005000"})
	// A reconnect replay delivers an older frame for the same market.
	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "0.90", Timestamp: "1764000000000"})

	r, ok := c.Latest("m1")
	if !ok {
		t.Fatalf("no reading for m1")
	}
	if r.Prices["m1-yes"] != 0.48 {
		t.Fatalf("stale replay overwrote newer price: %v", r.Prices["m1-yes"])
	}
	if r.Seq != 1 {
		t.Fatalf("dropped frame advanced the sequence: %d", r.Seq)
	}
}

func TestStreamApplyFrameTimestamp(t *testing.T) {
	c := newIndexedStream(t)

	c.apply(streamFrame{EventType: "price_change", AssetID: "tok-yes", Price: "0.48", Timestamp: "1764000000000"})

	r, _ := c.Latest("m1")
	want := time.UnixMilli(1764000000000)
	if !r.ObservedAt.Equal(want) {
		t.Fatalf("observed at %v, want %v", r.ObservedAt, want)
	}
}
