package models

import "time"

// Tier classifies alert quality, derived from the scorer's composite score.
type Tier string

const (
	TierStandard  Tier = "STANDARD"
	TierHighValue Tier = "HIGH_VALUE"
	TierAlpha     Tier = "ALPHA"
)

// rank orders tiers for "materially higher" comparisons.
func (t Tier) rank() int {
	switch t {
	case TierAlpha:
		return 2
	case TierHighValue:
		return 1
	default:
		return 0
	}
}

// Above reports whether t is a strictly higher tier than other.
func (t Tier) Above(other Tier) bool { return t.rank() > other.rank() }

// Confidence grades how trustworthy a score is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Score is the scorer's deterministic output for one candidate.
type Score struct {
	Composite    float64    `json:"composite"` // 0..1 weighted total
	Liquidity    float64    `json:"liquidity"`
	Stability    float64    `json:"stability"`
	Time         float64    `json:"time"`
	Complexity   float64    `json:"complexity"`
	CaptureRatio float64    `json:"capture_ratio"` // realized / theoretical
	Confidence   Confidence `json:"confidence"`
}

// AlertState is the gate's lifecycle position for a dedup key.
type AlertState string

const (
	AlertActive  AlertState = "active"
	AlertCooling AlertState = "cooling"
	AlertExpired AlertState = "expired"
)

// Alert is a candidate that passed the gate. It is created once per dedup
// key, updated on repeat detections within the cooldown window, and aged out
// of the active set rather than deleted.
type Alert struct {
	ID              string        `json:"id"`
	Kind            CandidateKind `json:"kind"`
	Tier            Tier          `json:"tier"`
	Score           Score         `json:"score"`
	DedupKey        string        `json:"dedup_key"`
	MarketIDs       []string      `json:"market_ids"`
	EventID         string        `json:"event_id,omitempty"`
	Reason          string        `json:"reason"`
	Value           float64       `json:"value"`
	NetProfitCents  float64       `json:"net_profit_cents,omitempty"`
	FirstSeenAt     time.Time     `json:"first_seen_at"`
	LastSeenAt      time.Time     `json:"last_seen_at"`
	SuppressedCount int           `json:"suppressed_count"`
	State           AlertState    `json:"state"`
}
