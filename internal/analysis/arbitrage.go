package analysis

import (
	"context"
	"fmt"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// ArbitrageConfig carries the single-market arbitrage thresholds.
type ArbitrageConfig struct {
	Threshold        float64 // min raw gap before costs
	FeePerSide       float64
	SlippageCents    float64
	MinProfitCents   float64
	DivergencePolicy string
}

// ArbitrageAnalyzer finds single markets whose outcome prices do not sum to
// one. Buying every outcome (or every complement) locks the gap in at
// resolution; a candidate is only raised when the gap survives fees and
// slippage.
type ArbitrageAnalyzer struct {
	cfg    ArbitrageConfig
	policy divergencePolicy
}

func NewArbitrage(cfg ArbitrageConfig) *ArbitrageAnalyzer {
	return &ArbitrageAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *ArbitrageAnalyzer) Name() string              { return "arbitrage" }
func (a *ArbitrageAnalyzer) Kind() models.CandidateKind { return models.KindArbitrage }

func (a *ArbitrageAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil || len(m.Outcomes) < 2 || len(snap.Prices) < len(m.Outcomes) {
			continue
		}
		if a.policy.skip(snap) {
			continue
		}

		total := snap.SumPrices()
		n := float64(len(m.Outcomes))

		// Underpriced set: buy every outcome, collect $1 at resolution.
		if gap := 1 - total; gap > a.cfg.Threshold {
			gross := gap * 100
			net := netCents(gross, total, a.cfg.FeePerSide, a.cfg.SlippageCents)
			if net >= a.cfg.MinProfitCents {
				c := models.OpportunityCandidate{
					Kind:             models.KindArbitrage,
					DedupKey:         "arb:long:" + id,
					MarketIDs:        []string{id},
					EventID:          m.EventID,
					Value:            gap,
					Reason:           fmt.Sprintf("outcomes sum to %.3f, %.1fc net per set buying all outcomes", total, net),
					DetectedAt:       set.At,
					GrossProfitCents: gross,
					NetProfitCents:   net,
				}
				a.policy.tag(&c, snap)
				out = append(out, c)
			}
		}

		// Overpriced set: buy every complement, exactly one outcome pays out.
		if gap := total - 1; gap > a.cfg.Threshold {
			gross := gap * 100
			net := netCents(gross, n-total, a.cfg.FeePerSide, a.cfg.SlippageCents)
			if net >= a.cfg.MinProfitCents {
				c := models.OpportunityCandidate{
					Kind:             models.KindArbitrage,
					DedupKey:         "arb:short:" + id,
					MarketIDs:        []string{id},
					EventID:          m.EventID,
					Value:            gap,
					Reason:           fmt.Sprintf("outcomes sum to %.3f, %.1fc net per set buying all complements", total, net),
					DetectedAt:       set.At,
					GrossProfitCents: gross,
					NetProfitCents:   net,
				}
				a.policy.tag(&c, snap)
				out = append(out, c)
			}
		}
	}
	return out
}
