package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// CrossPlatformConfig carries the cross-venue spread thresholds.
type CrossPlatformConfig struct {
	MinSpreadPct     float64
	FeePerSide       float64
	SlippageCents    float64
	MinProfitCents   float64
	DivergencePolicy string
}

// CrossPlatformAnalyzer compares the same market listed on different venues.
// Listings pair by slug, never by question-text similarity; a slug is only
// comparable when the catalog assigned it to both venues deliberately. Buy
// the cheap venue, sell the rich one, and the spread is locked in at
// resolution whichever way it goes.
type CrossPlatformAnalyzer struct {
	cfg    CrossPlatformConfig
	policy divergencePolicy
}

func NewCrossPlatform(cfg CrossPlatformConfig) *CrossPlatformAnalyzer {
	return &CrossPlatformAnalyzer{cfg: cfg, policy: newDivergencePolicy(cfg.DivergencePolicy)}
}

func (a *CrossPlatformAnalyzer) Name() string               { return "cross_platform" }
func (a *CrossPlatformAnalyzer) Kind() models.CandidateKind { return models.KindCrossPlatform }

func (a *CrossPlatformAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	bySlug := make(map[string][]*models.Market)
	for id, m := range set.Markets {
		if m.Slug == "" {
			continue
		}
		if _, ok := set.Snapshots[id]; !ok {
			continue
		}
		bySlug[m.Slug] = append(bySlug[m.Slug], m)
	}

	var out []models.OpportunityCandidate
	for slug, group := range bySlug {
		if len(group) < 2 {
			continue
		}
		// Deterministic pairing order regardless of map iteration.
		sort.Slice(group, func(i, j int) bool { return group[i].Platform < group[j].Platform })

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].Platform == group[j].Platform {
					continue
				}
				if c, ok := a.compare(set, slug, group[i], group[j]); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func (a *CrossPlatformAnalyzer) compare(set *models.SnapshotSet, slug string, ma, mb *models.Market) (models.OpportunityCandidate, bool) {
	snapA := set.Snapshot(ma.ID)
	snapB := set.Snapshot(mb.ID)
	if a.policy.skip(snapA) || a.policy.skip(snapB) {
		return models.OpportunityCandidate{}, false
	}
	pa, ok1 := snapA.YesPrice(ma)
	pb, ok2 := snapB.YesPrice(mb)
	if !ok1 || !ok2 {
		return models.OpportunityCandidate{}, false
	}

	cheap, rich := ma, mb
	low, high := pa, pb
	if pb < pa {
		cheap, rich = mb, ma
		low, high = pb, pa
	}

	mid := (low + high) / 2
	if mid <= 0 {
		return models.OpportunityCandidate{}, false
	}
	spreadPct := (high - low) / mid * 100
	if spreadPct < a.cfg.MinSpreadPct {
		return models.OpportunityCandidate{}, false
	}

	// Buy yes on the cheap venue, buy no on the rich one: one leg pays out.
	gross := (high - low) * 100
	cost := low + (1 - high)
	net := netCents(gross, cost, a.cfg.FeePerSide, a.cfg.SlippageCents)
	if net < a.cfg.MinProfitCents {
		return models.OpportunityCandidate{}, false
	}

	c := models.OpportunityCandidate{
		Kind:             models.KindCrossPlatform,
		DedupKey:         fmt.Sprintf("xplat:%s:%s:%s", slug, cheap.Platform, rich.Platform),
		MarketIDs:        []string{cheap.ID, rich.ID},
		Value:            spreadPct,
		Reason:           fmt.Sprintf("%s priced %.3f on %s against %.3f on %s, %.1fc net", slug, low, cheap.Platform, high, rich.Platform, net),
		DetectedAt:       set.At,
		GrossProfitCents: gross,
		NetProfitCents:   net,
		BuyPlatform:      cheap.Platform,
		SellPlatform:     rich.Platform,
	}
	a.policy.tag(&c, snapA, snapB)
	return c, true
}
