package analysis

import (
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// stubView is a canned baseline view for analyzer tests.
type stubView struct {
	averages map[string]float64
}

func (v stubView) Average(key string) (float64, bool) {
	avg, ok := v.averages[key]
	return avg, ok
}

var tickTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func emptySet(tick uint64) *models.SnapshotSet {
	return &models.SnapshotSet{
		Tick:      tick,
		At:        tickTime,
		Snapshots: make(map[string]*models.PriceSnapshot),
		Markets:   make(map[string]*models.Market),
		Events:    make(map[string]*models.Event),
	}
}

// addBinary registers a two-outcome market priced yes/no and returns it.
func addBinary(set *models.SnapshotSet, id string, yes, no float64) *models.Market {
	m := &models.Market{
		ID:       id,
		Question: "will " + id + " resolve yes",
		Platform: models.PlatformPolymarket,
		Outcomes: []models.Outcome{
			{ID: id + "-yes", Name: "Yes"},
			{ID: id + "-no", Name: "No"},
		},
		Volume24h: 5000,
		Liquidity: 20000,
	}
	set.Markets[id] = m
	set.Snapshots[id] = &models.PriceSnapshot{
		MarketID: id,
		Prices: map[string]float64{
			m.Outcomes[0].ID: yes,
			m.Outcomes[1].ID: no,
		},
		Source:     models.SourceStream,
		Tick:       set.Tick,
		ObservedAt: set.At,
		Volume24h:  m.Volume24h,
		Liquidity:  m.Liquidity,
	}
	return m
}
