package scoring

import (
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// Liquidity at or above this level earns full marks.
const liquidityCeiling = 50_000

// Payoffs further out than this earn no time score.
const timeHorizon = 30 * 24 * time.Hour

// Weights are the component weights of the composite score. They must sum
// to 1.0; config validation enforces it.
type Weights struct {
	Liquidity  float64
	Stability  float64
	Time       float64
	Complexity float64
}

// Scorer turns a candidate into a composite score, capture ratio, confidence
// grade, and tier. It is a pure function of the candidate and the tick's
// snapshot set: no clock reads, no randomness, so the same inputs always
// score identically.
type Scorer struct {
	weights Weights

	confidenceHigh   float64
	confidenceMedium float64
	tierAlpha        float64
	tierHighValue    float64
}

func New(weights Weights) *Scorer {
	return &Scorer{
		weights:          weights,
		confidenceHigh:   0.70,
		confidenceMedium: 0.40,
		tierAlpha:        0.80,
		tierHighValue:    0.55,
	}
}

// Score grades one candidate against the snapshot set it was detected in.
func (s *Scorer) Score(c *models.OpportunityCandidate, set *models.SnapshotSet) (models.Score, models.Tier) {
	liquidity := s.liquidityScore(c, set)
	stability := s.stabilityScore(c, set)
	timeScore := s.timeScore(c, set)
	complexity := s.complexityScore(c)

	composite := s.weights.Liquidity*liquidity +
		s.weights.Stability*stability +
		s.weights.Time*timeScore +
		s.weights.Complexity*complexity

	capture := captureRatio(c)

	confidenceInput := composite * capture
	confidence := models.ConfidenceLow
	switch {
	case confidenceInput >= s.confidenceHigh:
		confidence = models.ConfidenceHigh
	case confidenceInput >= s.confidenceMedium:
		confidence = models.ConfidenceMedium
	}
	// Divergent source data never earns full trust.
	if c.Divergent && confidence == models.ConfidenceHigh {
		confidence = models.ConfidenceMedium
	}

	tier := models.TierStandard
	switch {
	case composite >= s.tierAlpha:
		tier = models.TierAlpha
	case composite >= s.tierHighValue:
		tier = models.TierHighValue
	}

	return models.Score{
		Composite:    composite,
		Liquidity:    liquidity,
		Stability:    stability,
		Time:         timeScore,
		Complexity:   complexity,
		CaptureRatio: capture,
		Confidence:   confidence,
	}, tier
}

// liquidityScore is the thinnest involved market's liquidity against the
// ceiling. An opportunity is only as deep as its worst leg.
func (s *Scorer) liquidityScore(c *models.OpportunityCandidate, set *models.SnapshotSet) float64 {
	worst := -1.0
	for _, id := range c.MarketIDs {
		snap := set.Snapshot(id)
		if snap == nil {
			continue
		}
		if worst < 0 || snap.Liquidity < worst {
			worst = snap.Liquidity
		}
	}
	if worst < 0 {
		return 0
	}
	return clamp(worst / liquidityCeiling)
}

// stabilityScore grades how trustworthy the underlying readings are: live
// stream beats poll, poll beats cache, and divergence halves whatever is
// left.
func (s *Scorer) stabilityScore(c *models.OpportunityCandidate, set *models.SnapshotSet) float64 {
	worst := 1.0
	found := false
	for _, id := range c.MarketIDs {
		snap := set.Snapshot(id)
		if snap == nil {
			continue
		}
		found = true
		v := 1.0
		switch snap.Source {
		case models.SourcePull:
			v = 0.8
		case models.SourceCache:
			v = 0.4
		}
		if v < worst {
			worst = v
		}
	}
	if !found {
		return 0
	}
	if c.Divergent {
		worst *= 0.5
	}
	return worst
}

// timeScore prefers opportunities that pay out sooner; capital locked for a
// month scores zero on this axis. Markets without an end date sit in the
// middle.
func (s *Scorer) timeScore(c *models.OpportunityCandidate, set *models.SnapshotSet) float64 {
	var latest time.Time
	for _, id := range c.MarketIDs {
		m := set.Market(id)
		if m == nil || m.EndDate.IsZero() {
			continue
		}
		if m.EndDate.After(latest) {
			latest = m.EndDate
		}
	}
	if latest.IsZero() {
		return 0.5
	}
	untilEnd := latest.Sub(set.At)
	if untilEnd <= 0 {
		return 1
	}
	return clamp(1 - float64(untilEnd)/float64(timeHorizon))
}

// complexityScore penalizes leg count: every extra leg is another fill to
// chase.
func (s *Scorer) complexityScore(c *models.OpportunityCandidate) float64 {
	n := len(c.MarketIDs)
	if n <= 1 {
		return 1
	}
	return 1 / float64(n)
}

// captureRatio is the fraction of the theoretical edge that survives costs.
// Kinds with no profit estimate have no cost drag measured and pass through
// at 1.
func captureRatio(c *models.OpportunityCandidate) float64 {
	if c.GrossProfitCents <= 0 {
		return 1
	}
	return clamp(c.NetProfitCents / c.GrossProfitCents)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
