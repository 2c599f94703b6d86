package analysis

import (
	"context"
	"fmt"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// WhaleConfig carries the volume-spike thresholds.
type WhaleConfig struct {
	VolumeMultiplier float64
	MinVolume        float64
	DivergencePolicy string
}

// WhaleAnalyzer flags markets whose 24h volume is running far above their
// own rolling baseline. Sudden size usually means somebody knows something;
// the floor keeps illiquid markets from alerting on noise.
type WhaleAnalyzer struct {
	cfg    WhaleConfig
	policy divergencePolicy
}

func NewWhale(cfg WhaleConfig) *WhaleAnalyzer {
	return &WhaleAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *WhaleAnalyzer) Name() string               { return "whale" }
func (a *WhaleAnalyzer) Kind() models.CandidateKind { return models.KindWhale }

func (a *WhaleAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, base baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil || a.policy.skip(snap) {
			continue
		}
		if snap.Volume24h < a.cfg.MinVolume {
			continue
		}

		avg, ok := base.Average(baseline.VolumeKey(id))
		if !ok || avg <= 0 {
			continue
		}

		ratio := snap.Volume24h / avg
		if ratio < a.cfg.VolumeMultiplier {
			continue
		}

		c := models.OpportunityCandidate{
			Kind:       models.KindWhale,
			DedupKey:   "whale:" + id,
			MarketIDs:  []string{id},
			EventID:    m.EventID,
			Value:      ratio,
			Reason:     fmt.Sprintf("24h volume %.0f is %.1fx its rolling average", snap.Volume24h, ratio),
			DetectedAt: set.At,
		}
		a.policy.tag(&c, snap)
		out = append(out, c)
	}
	return out
}
