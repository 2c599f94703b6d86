package models

import "time"

// Source identifies where a price reading came from.
type Source string

const (
	SourceStream Source = "stream"
	SourcePull   Source = "pull"
	SourceCache  Source = "cache"
)

// Reading is a raw per-source price observation for one market. Readings are
// ephemeral inputs to reconciliation and are never persisted individually.
type Reading struct {
	MarketID   string
	Prices     map[string]float64 // outcome ID -> price in [0,1]
	Source     Source
	Seq        uint64
	ObservedAt time.Time
}

// YesPrice returns the price of the first listed outcome of the market.
func (r *Reading) YesPrice(m *Market) (float64, bool) {
	if m == nil || len(m.Outcomes) == 0 {
		return 0, false
	}
	p, ok := r.Prices[m.Outcomes[0].ID]
	return p, ok
}

// PriceSnapshot is the single authoritative price reading for a market at a
// given tick, after reconciliation. Exactly one exists per (market, tick).
type PriceSnapshot struct {
	MarketID      string             `json:"market_id"`
	Prices        map[string]float64 `json:"prices"` // outcome ID -> price
	Source        Source             `json:"source"`
	Tick          uint64             `json:"tick"`
	ObservedAt    time.Time          `json:"observed_at"`
	Divergent     bool               `json:"divergent"`
	DivergencePct float64            `json:"divergence_pct,omitempty"`
	Volume24h     float64            `json:"volume_24h"`
	Liquidity     float64            `json:"liquidity"`
}

// Price returns the snapshot price for an outcome ID.
func (s *PriceSnapshot) Price(outcomeID string) (float64, bool) {
	p, ok := s.Prices[outcomeID]
	return p, ok
}

// YesPrice returns the price of the market's first outcome.
func (s *PriceSnapshot) YesPrice(m *Market) (float64, bool) {
	if m == nil || len(m.Outcomes) == 0 {
		return 0, false
	}
	return s.Price(m.Outcomes[0].ID)
}

// SumPrices returns the sum of all outcome prices in the snapshot.
func (s *PriceSnapshot) SumPrices() float64 {
	var sum float64
	for _, p := range s.Prices {
		sum += p
	}
	return sum
}

// SnapshotSet is the immutable per-tick view handed to analyzers: the
// reconciled snapshots plus the market and event metadata they refer to.
// Analyzers read it, never mutate it.
type SnapshotSet struct {
	Tick      uint64
	At        time.Time
	Snapshots map[string]*PriceSnapshot // market ID -> snapshot
	Markets   map[string]*Market        // market ID -> metadata
	Events    map[string]*Event         // event ID -> metadata
}

// Snapshot returns the snapshot for a market, or nil when the market had
// NoData this tick.
func (s *SnapshotSet) Snapshot(marketID string) *PriceSnapshot {
	return s.Snapshots[marketID]
}

// Market returns catalog metadata for a market ID.
func (s *SnapshotSet) Market(marketID string) *Market {
	return s.Markets[marketID]
}

// EventMarkets returns the markets of an event that have a snapshot this tick.
func (s *SnapshotSet) EventMarkets(eventID string) []*Market {
	ev, ok := s.Events[eventID]
	if !ok {
		return nil
	}
	out := make([]*Market, 0, len(ev.MarketIDs))
	for _, id := range ev.MarketIDs {
		m, ok := s.Markets[id]
		if !ok {
			continue
		}
		if _, ok := s.Snapshots[id]; !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}
