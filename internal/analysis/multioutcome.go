package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// MultiOutcomeConfig carries the event-level mispricing thresholds.
type MultiOutcomeConfig struct {
	Threshold          float64 // static minimum gap
	BaselineMultiplier float64 // gap must also beat its own history by this factor
	FeePerSide         float64
	SlippageCents      float64
	MinProfitCents     float64
	DivergencePolicy   string
}

// MultiOutcomeAnalyzer prices whole events: in an exclusive event the yes
// probabilities must sum to the bound, so a persistent gap is a mispriced
// set. The gap must clear both the static threshold and a multiple of the
// event's own rolling gap so structurally-wide events stay quiet.
type MultiOutcomeAnalyzer struct {
	cfg    MultiOutcomeConfig
	policy divergencePolicy
}

func NewMultiOutcome(cfg MultiOutcomeConfig) *MultiOutcomeAnalyzer {
	return &MultiOutcomeAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *MultiOutcomeAnalyzer) Name() string               { return "multi_outcome" }
func (a *MultiOutcomeAnalyzer) Kind() models.CandidateKind { return models.KindMultiOutcome }

func (a *MultiOutcomeAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, base baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	for eventID, ev := range set.Events {
		if !ev.Exclusive || len(ev.MarketIDs) < 2 {
			continue
		}
		bound := ev.SumBound
		if bound <= 0 {
			bound = 1
		}

		total, cost, snaps, complete := a.eventTotal(set, ev)
		if !complete {
			// A partial read of the set is not a price; skip the event.
			continue
		}

		gap := math.Abs(bound - total)
		if gap < a.cfg.Threshold {
			continue
		}
		if avg, ok := base.Average(baseline.EventGapKey(eventID)); ok && gap < avg*a.cfg.BaselineMultiplier {
			continue
		}

		ids := make([]string, len(ev.MarketIDs))
		copy(ids, ev.MarketIDs)
		gross := gap * 100

		var net float64
		var key, reason string
		if total < bound {
			// Underpriced set: buy every leg, exactly one pays out.
			net = netCents(gross, cost, a.cfg.FeePerSide, a.cfg.SlippageCents)
			key = "multi:long:" + eventID
			reason = fmt.Sprintf("%d-way set sums to %.3f against bound %.2f, %.1fc net buying all legs", len(ids), total, bound, net)
		} else {
			// Overpriced set: buy every complement, all legs but one pay out.
			net = netCents(gross, float64(len(ids))-total, a.cfg.FeePerSide, a.cfg.SlippageCents)
			key = "multi:short:" + eventID
			reason = fmt.Sprintf("%d-way set sums to %.3f against bound %.2f, %.1fc net buying all complements", len(ids), total, bound, net)
		}
		if net < a.cfg.MinProfitCents {
			continue
		}

		c := models.OpportunityCandidate{
			Kind:             models.KindMultiOutcome,
			DedupKey:         key,
			MarketIDs:        ids,
			EventID:          eventID,
			Value:            gap,
			Reason:           reason,
			DetectedAt:       set.At,
			GrossProfitCents: gross,
			NetProfitCents:   net,
		}
		a.policy.tag(&c, snaps...)
		out = append(out, c)
	}
	return out
}

// eventTotal sums the yes prices of every market in the event. complete is
// false when any leg is missing a snapshot, is excluded by policy, or has no
// yes price this tick.
func (a *MultiOutcomeAnalyzer) eventTotal(set *models.SnapshotSet, ev *models.Event) (total, cost float64, snaps []*models.PriceSnapshot, complete bool) {
	for _, id := range ev.MarketIDs {
		snap := set.Snapshot(id)
		m := set.Market(id)
		if snap == nil || m == nil || a.policy.skip(snap) {
			return 0, 0, nil, false
		}
		yes, ok := snap.YesPrice(m)
		if !ok {
			return 0, 0, nil, false
		}
		total += yes
		cost += yes
		snaps = append(snaps, snap)
	}
	return total, cost, snaps, true
}
