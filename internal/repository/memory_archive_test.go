package repository

import (
	"context"
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
)

var archiveT0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setAt(tick uint64, at time.Time, yes float64) *models.SnapshotSet {
	return &models.SnapshotSet{
		Tick: tick,
		At:   at,
		Snapshots: map[string]*models.PriceSnapshot{
			"m1": {
				MarketID:   "m1",
				Prices:     map[string]float64{"m1-yes": yes, "m1-no": 1 - yes},
				Source:     models.SourceStream,
				Tick:       tick,
				ObservedAt: at,
			},
		},
		Markets: map[string]*models.Market{
			"m1": {ID: "m1", Outcomes: []models.Outcome{{ID: "m1-yes"}, {ID: "m1-no"}}},
		},
	}
}

func TestMemoryArchivePriceAt(t *testing.T) {
	a := NewMemoryArchive(24 * time.Hour)
	ctx := context.Background()

	for i, yes := range []float64{0.40, 0.45, 0.50} {
		set := setAt(uint64(i+1), archiveT0.Add(time.Duration(i)*time.Hour), yes)
		if err := a.WriteSnapshots(ctx, set); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// Between the second and third points: the second answers.
	price, ok, err := a.PriceAt(ctx, "m1", archiveT0.Add(90*time.Minute))
	if err != nil || !ok {
		t.Fatalf("PriceAt: ok=%v err=%v", ok, err)
	}
	if price != 0.45 {
		t.Fatalf("price %v, want 0.45", price)
	}

	// Exactly on a point counts as at-or-before.
	price, ok, _ = a.PriceAt(ctx, "m1", archiveT0.Add(2*time.Hour))
	if !ok || price != 0.50 {
		t.Fatalf("boundary lookup: ok=%v price=%v", ok, price)
	}

	// Before all history there is nothing to answer with.
	if _, ok, _ := a.PriceAt(ctx, "m1", archiveT0.Add(-time.Minute)); ok {
		t.Fatalf("answered before first point")
	}

	if _, ok, _ := a.PriceAt(ctx, "nope", archiveT0); ok {
		t.Fatalf("answered for unknown market")
	}
}

func TestMemoryArchiveRetentionTrim(t *testing.T) {
	a := NewMemoryArchive(time.Hour)
	ctx := context.Background()

	a.WriteSnapshots(ctx, setAt(1, archiveT0, 0.40))
	a.WriteSnapshots(ctx, setAt(2, archiveT0.Add(2*time.Hour), 0.50))

	// The first point fell out of the retention window on the second write.
	if _, ok, _ := a.PriceAt(ctx, "m1", archiveT0.Add(time.Minute)); ok {
		t.Fatalf("expired point still served")
	}
	price, ok, _ := a.PriceAt(ctx, "m1", archiveT0.Add(3*time.Hour))
	if !ok || price != 0.50 {
		t.Fatalf("live point lost: ok=%v price=%v", ok, price)
	}
}

func TestMemoryArchiveSkipsUnpriceable(t *testing.T) {
	a := NewMemoryArchive(time.Hour)
	ctx := context.Background()

	set := setAt(1, archiveT0, 0.40)
	delete(set.Snapshots["m1"].Prices, "m1-yes")
	a.WriteSnapshots(ctx, set)

	if _, ok, _ := a.PriceAt(ctx, "m1", archiveT0.Add(time.Minute)); ok {
		t.Fatalf("archived a snapshot with no yes price")
	}
}
