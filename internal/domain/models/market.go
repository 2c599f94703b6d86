package models

import "time"

// Platform identifies which venue a market trades on.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// Outcome is one tradeable outcome of a market.
type Outcome struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TokenID string `json:"token_id,omitempty"`
}

// Market is a single prediction market. Identity fields (ID, Question, Slug,
// Platform, EventID, Outcomes) are immutable once seen; volume and liquidity
// are refreshed on every catalog sync.
type Market struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Slug      string    `json:"slug,omitempty"`
	Platform  Platform  `json:"platform"`
	EventID   string    `json:"event_id,omitempty"`
	Outcomes  []Outcome `json:"outcomes"`
	EndDate   time.Time `json:"end_date,omitempty"`
	Volume24h float64   `json:"volume_24h"`
	Liquidity float64   `json:"liquidity"`
}

// YesToken returns the token ID of the first (yes) outcome, if any.
func (m *Market) YesToken() string {
	if len(m.Outcomes) > 0 {
		return m.Outcomes[0].TokenID
	}
	return ""
}

// NoToken returns the token ID of the second (no) outcome, if any.
func (m *Market) NoToken() string {
	if len(m.Outcomes) > 1 {
		return m.Outcomes[1].TokenID
	}
	return ""
}

// RelationType classifies a declared logical dependency between two markets.
type RelationType string

const (
	// RelationTemporal: the strict market's deadline precedes the loose one's,
	// so P(strict) <= P(loose) must hold ("by March" implies "by June").
	RelationTemporal RelationType = "temporal"
	// RelationSubset: the strict market's condition implies the loose one's,
	// so P(strict) <= P(loose) must hold ("win by 5+" implies "win").
	RelationSubset RelationType = "subset"
	// RelationExclusive: the two markets cannot both resolve yes,
	// so P(a) + P(b) <= bound must hold.
	RelationExclusive RelationType = "exclusive"
)

// Relation is a declared logical dependency between two markets of an event.
// Relations come from the catalog; they are never inferred from question text.
type Relation struct {
	Type     RelationType `json:"type"`
	StrictID string       `json:"strict_id"`
	LooseID  string       `json:"loose_id"`
}

// Event groups related markets whose yes-probabilities are expected to sum to
// a known bound: 1.0 for mutually exclusive outcome sets, <= 1.0 otherwise.
type Event struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	SumBound  float64    `json:"sum_bound"`
	Exclusive bool       `json:"exclusive"`
	MarketIDs []string   `json:"market_ids"`
	Relations []Relation `json:"relations,omitempty"`
}
