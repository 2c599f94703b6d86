package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// MovementConfig carries the price-movement thresholds.
type MovementConfig struct {
	ThresholdPct     float64
	Lookback         time.Duration
	DivergencePolicy string
}

type pricePoint struct {
	price float64
	at    time.Time
}

// MovementAnalyzer flags markets whose yes price moved more than the
// threshold over the lookback window. It keeps its own in-memory history so
// a tick never needs the archive; the history rebuilds within one lookback
// after a restart.
type MovementAnalyzer struct {
	cfg    MovementConfig
	policy divergencePolicy

	mu      sync.Mutex
	history map[string][]pricePoint
}

func NewMovement(cfg MovementConfig) *MovementAnalyzer {
	return &MovementAnalyzer{
		cfg:     cfg,
		policy:  newDivergencePolicy(cfg.DivergencePolicy),
		history: make(map[string][]pricePoint),
	}
}

func (a *MovementAnalyzer) Name() string               { return "price_move" }
func (a *MovementAnalyzer) Kind() models.CandidateKind { return models.KindPriceMove }

func (a *MovementAnalyzer) Analyze(_ context.Context, set *models.SnapshotSet, _ baseline.View) []models.OpportunityCandidate {
	var out []models.OpportunityCandidate

	a.mu.Lock()
	defer a.mu.Unlock()

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil {
			continue
		}
		yes, ok := snap.YesPrice(m)
		if !ok {
			continue
		}

		oldest, haveHistory := a.record(id, yes, set.At)
		if a.policy.skip(snap) || !haveHistory || oldest.price <= 0 {
			continue
		}

		movementPct := math.Abs(yes-oldest.price) / oldest.price * 100
		if movementPct < a.cfg.ThresholdPct {
			continue
		}

		direction := "up"
		if yes < oldest.price {
			direction = "down"
		}
		c := models.OpportunityCandidate{
			Kind:       models.KindPriceMove,
			DedupKey:   fmt.Sprintf("move:%s:%s", id, direction),
			MarketIDs:  []string{id},
			EventID:    m.EventID,
			Value:      movementPct,
			Reason:     fmt.Sprintf("moved %s %.1f%% over %s, %.3f to %.3f", direction, movementPct, a.cfg.Lookback, oldest.price, yes),
			DetectedAt: set.At,
		}
		a.policy.tag(&c, snap)
		out = append(out, c)
	}

	a.prune(set.At)
	return out
}

// record appends the observation and returns the oldest point still inside
// the lookback window. Caller holds the lock.
func (a *MovementAnalyzer) record(marketID string, price float64, at time.Time) (pricePoint, bool) {
	points := a.history[marketID]
	if len(points) == 0 || !points[len(points)-1].at.Equal(at) {
		points = append(points, pricePoint{price: price, at: at})
		a.history[marketID] = points
	}

	cutoff := at.Add(-a.cfg.Lookback)
	for _, p := range points {
		if !p.at.Before(cutoff) {
			// The current observation alone is not history.
			if p.at.Equal(at) && len(points) == 1 {
				return pricePoint{}, false
			}
			return p, !p.at.Equal(at)
		}
	}
	return pricePoint{}, false
}

// prune drops points behind the lookback window plus one interval of slack,
// and forgets markets that left the tracked universe. Caller holds the lock.
func (a *MovementAnalyzer) prune(now time.Time) {
	cutoff := now.Add(-2 * a.cfg.Lookback)
	for id, points := range a.history {
		drop := 0
		for _, p := range points {
			if p.at.After(cutoff) {
				break
			}
			drop++
		}
		if drop == len(points) {
			delete(a.history, id)
			continue
		}
		if drop > 0 {
			a.history[id] = append(points[:0], points[drop:]...)
		}
	}
}
