package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
)

type archivedPoint struct {
	yes float64
	at  time.Time
}

// MemoryArchive is the degraded-mode SnapshotArchive used when ClickHouse is
// disabled. It keeps a bounded per-market price history so history-dependent
// analyzers keep working across the retention window, but nothing survives a
// restart.
type MemoryArchive struct {
	mu        sync.RWMutex
	retention time.Duration
	points    map[string][]archivedPoint
}

func NewMemoryArchive(retention time.Duration) *MemoryArchive {
	return &MemoryArchive{
		retention: retention,
		points:    make(map[string][]archivedPoint),
	}
}

func (a *MemoryArchive) WriteSnapshots(_ context.Context, set *models.SnapshotSet) error {
	if set == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := set.At.Add(-a.retention)
	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil {
			continue
		}
		yes, ok := snap.YesPrice(m)
		if !ok {
			continue
		}
		pts := append(a.points[id], archivedPoint{yes: yes, at: snap.ObservedAt})
		drop := 0
		for _, p := range pts {
			if p.at.After(cutoff) {
				break
			}
			drop++
		}
		a.points[id] = pts[drop:]
	}
	return nil
}

func (a *MemoryArchive) PriceAt(_ context.Context, marketID string, before time.Time) (float64, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pts := a.points[marketID]
	// First index strictly after the cutoff; the answer sits just before it.
	i := sort.Search(len(pts), func(i int) bool { return pts[i].at.After(before) })
	if i == 0 {
		return 0, false, nil
	}
	return pts[i-1].yes, true, nil
}

func (a *MemoryArchive) Health(_ context.Context) error { return nil }

func (a *MemoryArchive) Close() error { return nil }

var _ repository.SnapshotArchive = (*MemoryArchive)(nil)
