package models

import "time"

// CandidateKind names the anomaly class an analyzer detects.
type CandidateKind string

const (
	KindArbitrage     CandidateKind = "arbitrage"
	KindSettlementLag CandidateKind = "settlement_lag"
	KindPriceMove     CandidateKind = "price_move"
	KindWhale         CandidateKind = "whale"
	KindResolution    CandidateKind = "resolution"
	KindMultiOutcome  CandidateKind = "multi_outcome"
	KindDependency    CandidateKind = "dependency"
	KindCrossPlatform CandidateKind = "cross_platform"
)

// OpportunityCandidate is a raw detection produced by an analyzer during one
// tick. Candidates are ephemeral; only those promoted by the gate survive as
// alerts.
type OpportunityCandidate struct {
	Kind       CandidateKind `json:"kind"`
	DedupKey   string        `json:"dedup_key"`
	MarketIDs  []string      `json:"market_ids"`
	EventID    string        `json:"event_id,omitempty"`
	Value      float64       `json:"value"` // raw metric: gap, spread pct, z-ratio
	Reason     string        `json:"reason"`
	DetectedAt time.Time     `json:"detected_at"`

	// Profit context, set by analyzers that can estimate it.
	GrossProfitCents float64 `json:"gross_profit_cents,omitempty"`
	NetProfitCents   float64 `json:"net_profit_cents,omitempty"`

	// Cross-platform context.
	BuyPlatform  Platform `json:"buy_platform,omitempty"`
	SellPlatform Platform `json:"sell_platform,omitempty"`

	// True when any snapshot involved carried the divergence tag and the
	// configured policy is to down-weight rather than exclude.
	Divergent bool `json:"divergent,omitempty"`
}
