package snapcache

import (
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
)

type entry struct {
	snap *models.PriceSnapshot
	at   time.Time
}

// Cache holds the last authoritative snapshot per market. It is the third
// rung of the source failover ladder: when both live sources fail, the
// reconciler serves from here as long as the snapshot is within the max age.
type Cache struct {
	mu sync.RWMutex
	m  map[string]entry
}

func New() *Cache {
	return &Cache{m: make(map[string]entry)}
}

// Put stores the snapshot for its market. Re-putting within the same tick is
// a no-op so retried ticks stay idempotent.
func (c *Cache) Put(snap *models.PriceSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.m[snap.MarketID]; ok && prev.snap.Tick == snap.Tick {
		return
	}
	c.m[snap.MarketID] = entry{snap: snap, at: time.Now()}
}

// Get returns the cached snapshot for a market if it is younger than maxAge.
// Expired entries are evicted on read.
func (c *Cache) Get(marketID string, maxAge time.Duration) (*models.PriceSnapshot, bool) {
	c.mu.RLock()
	e, ok := c.m[marketID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.at) > maxAge {
		c.mu.Lock()
		if cur, still := c.m[marketID]; still && cur.at.Equal(e.at) {
			delete(c.m, marketID)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.snap, true
}

// Len returns the number of cached markets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
