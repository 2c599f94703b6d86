package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// ResolutionConfig carries the resolution-proximity thresholds.
type ResolutionConfig struct {
	Window           time.Duration
	BandLow          float64
	BandHigh         float64
	DivergencePolicy string
}

// ResolutionAnalyzer flags markets about to resolve while still priced in
// the uncertainty band. A coin-flip price hours before a binary resolution
// means the market has not priced in whatever decides it.
type ResolutionAnalyzer struct {
	cfg    ResolutionConfig
	policy divergencePolicy
}

func NewResolution(cfg ResolutionConfig) *ResolutionAnalyzer {
	return &ResolutionAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *ResolutionAnalyzer) Name() string               { return "resolution" }
func (a *ResolutionAnalyzer) Kind() models.CandidateKind { return models.KindResolution }

func (a *ResolutionAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil || m.EndDate.IsZero() || a.policy.skip(snap) {
			continue
		}

		untilEnd := m.EndDate.Sub(set.At)
		if untilEnd <= 0 || untilEnd > a.cfg.Window {
			continue
		}

		yes, ok := snap.YesPrice(m)
		if !ok || yes < a.cfg.BandLow || yes > a.cfg.BandHigh {
			continue
		}

		c := models.OpportunityCandidate{
			Kind:       models.KindResolution,
			DedupKey:   "resolve:" + id,
			MarketIDs:  []string{id},
			EventID:    m.EventID,
			Value:      yes,
			Reason:     fmt.Sprintf("resolves in %s, still priced at %.3f", untilEnd.Round(time.Minute), yes),
			DetectedAt: set.At,
		}
		a.policy.tag(&c, snap)
		out = append(out, c)
	}
	return out
}
