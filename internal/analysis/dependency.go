package analysis

import (
	"context"
	"fmt"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// DependencyConfig carries the relation-violation thresholds.
type DependencyConfig struct {
	MinViolation     float64
	FeePerSide       float64
	SlippageCents    float64
	MinProfitCents   float64
	DivergencePolicy string
}

// DependencyAnalyzer checks the logical relations declared on events.
// Temporal and subset relations require the strict market to price at or
// below the loose one; exclusive relations cap the pair's combined price.
// A violation is a logical inconsistency the market must eventually repair.
type DependencyAnalyzer struct {
	cfg    DependencyConfig
	policy divergencePolicy
}

func NewDependency(cfg DependencyConfig) *DependencyAnalyzer {
	return &DependencyAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *DependencyAnalyzer) Name() string               { return "dependency" }
func (a *DependencyAnalyzer) Kind() models.CandidateKind { return models.KindDependency }

func (a *DependencyAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	for eventID, ev := range set.Events {
		for _, rel := range ev.Relations {
			strictSnap, strictYes, ok1 := a.yes(set, rel.StrictID)
			looseSnap, looseYes, ok2 := a.yes(set, rel.LooseID)
			if !ok1 || !ok2 {
				continue
			}

			var violation float64
			var reason string
			var cost float64

			switch rel.Type {
			case models.RelationTemporal, models.RelationSubset:
				violation = strictYes - looseYes
				if violation < a.cfg.MinViolation {
					continue
				}
				// Sell the strict leg, buy the loose one: buy loose yes and
				// strict no.
				cost = looseYes + (1 - strictYes)
				reason = fmt.Sprintf("%s relation violated: strict at %.3f above loose at %.3f", rel.Type, strictYes, looseYes)
			case models.RelationExclusive:
				bound := ev.SumBound
				if bound <= 0 {
					bound = 1
				}
				violation = strictYes + looseYes - bound
				if violation < a.cfg.MinViolation {
					continue
				}
				// Both cannot happen: buy no on both legs.
				cost = (1 - strictYes) + (1 - looseYes)
				reason = fmt.Sprintf("exclusive pair priced at %.3f combined against bound %.2f", strictYes+looseYes, bound)
			default:
				continue
			}

			gross := violation * 100
			net := netCents(gross, cost, a.cfg.FeePerSide, a.cfg.SlippageCents)
			if net < a.cfg.MinProfitCents {
				continue
			}

			c := models.OpportunityCandidate{
				Kind:             models.KindDependency,
				DedupKey:         fmt.Sprintf("dep:%s:%s:%s", rel.Type, rel.StrictID, rel.LooseID),
				MarketIDs:        []string{rel.StrictID, rel.LooseID},
				EventID:          eventID,
				Value:            violation,
				Reason:           reason,
				DetectedAt:       set.At,
				GrossProfitCents: gross,
				NetProfitCents:   net,
			}
			a.policy.tag(&c, strictSnap, looseSnap)
			out = append(out, c)
		}
	}
	return out
}

func (a *DependencyAnalyzer) yes(set *models.SnapshotSet, marketID string) (*models.PriceSnapshot, float64, bool) {
	snap := set.Snapshot(marketID)
	m := set.Market(marketID)
	if snap == nil || m == nil || a.policy.skip(snap) {
		return nil, 0, false
	}
	yes, ok := snap.YesPrice(m)
	if !ok {
		return nil, 0, false
	}
	return snap, yes, true
}
