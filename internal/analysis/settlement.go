package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// SettlementConfig carries the settlement-lag thresholds.
type SettlementConfig struct {
	Extreme          float64 // price considered effectively decided
	MinMovementPct   float64 // recent jump required to call it newly decided
	MaxDays          int     // ignore markets settling further out
	DivergencePolicy string
}

// SettlementAnalyzer finds markets that have effectively resolved but whose
// price has not converged to settlement yet. The residual gap is free carry
// for whoever holds to resolution. A recent jump to the extreme is required
// so long-priced-in certainties do not alert forever.
type SettlementAnalyzer struct {
	cfg     SettlementConfig
	archive repository.SnapshotArchive
	log     *logger.Logger
	policy  divergencePolicy
}

func NewSettlement(cfg SettlementConfig, archive repository.SnapshotArchive, log *logger.Logger) *SettlementAnalyzer {
	return &SettlementAnalyzer{
		cfg:     cfg,
		archive: archive,
		log:     log,
		policy:  newDivergencePolicy(cfg.DivergencePolicy),
	}
}

func (a *SettlementAnalyzer) Name() string               { return "settlement_lag" }
func (a *SettlementAnalyzer) Kind() models.CandidateKind { return models.KindSettlementLag }

func (a *SettlementAnalyzer) Analyze(ctx context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate
	maxHorizon := time.Duration(a.cfg.MaxDays) * 24 * time.Hour

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil || m.EndDate.IsZero() {
			continue
		}
		if a.policy.skip(snap) {
			continue
		}

		untilEnd := m.EndDate.Sub(set.At)
		if untilEnd < 0 || untilEnd > maxHorizon {
			continue
		}

		yes, ok := snap.YesPrice(m)
		if !ok {
			continue
		}

		extremeHigh := yes >= a.cfg.Extreme
		extremeLow := yes <= 1-a.cfg.Extreme
		if !extremeHigh && !extremeLow {
			continue
		}

		prev, found, err := a.archive.PriceAt(ctx, id, set.At.Add(-24*time.Hour))
		if err != nil {
			// History is best effort; without it this analyzer stays quiet.
			a.log.Debug("settlement: history lookup failed",
				logger.String("market", id),
				logger.Error(err))
			continue
		}
		if !found || prev <= 0 {
			continue
		}

		movementPct := math.Abs(yes-prev) / prev * 100
		if movementPct < a.cfg.MinMovementPct {
			continue
		}

		residual := (1 - yes) * 100
		side := "yes"
		if extremeLow {
			residual = yes * 100
			side = "no"
		}

		c := models.OpportunityCandidate{
			Kind:       models.KindSettlementLag,
			DedupKey:   "settle:" + id,
			MarketIDs:  []string{id},
			EventID:    m.EventID,
			Value:      residual / 100,
			Reason:     fmt.Sprintf("effectively decided at %.3f after %.1f%% move, %.1fc carry on %s to settlement", yes, movementPct, residual, side),
			DetectedAt: set.At,

			GrossProfitCents: residual,
			NetProfitCents:   residual,
		}
		a.policy.tag(&c, snap)
		out = append(out, c)
	}
	return out
}
