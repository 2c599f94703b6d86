package reconcile

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/internal/snapcache"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// Config carries the reconciler's failover and divergence knobs.
type Config struct {
	StreamFreshness     time.Duration
	PullFreshness       time.Duration
	CacheMaxAge         time.Duration
	DivergenceThreshold float64
	// Workers bounds per-market reconciliation concurrency. Each market
	// depends only on its own readings, so the order does not matter.
	Workers int
}

// Reconciler merges the stream, pull, and cached views of each market into
// one authoritative snapshot per tick. Preference order is stream, then
// pull, then cache; a market none of them can price is dropped for the tick
// rather than guessed at.
type Reconciler struct {
	cfg     Config
	stream  repository.StreamSource
	pull    repository.PullSource
	cache   *snapcache.Cache
	health  *HealthTracker
	metrics repository.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func New(cfg Config, stream repository.StreamSource, pull repository.PullSource, cache *snapcache.Cache, health *HealthTracker, metrics repository.Metrics, log *logger.Logger) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		stream:  stream,
		pull:    pull,
		cache:   cache,
		health:  health,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Health exposes per-source condition for the status endpoint.
func (r *Reconciler) Health() []SourceHealth {
	return r.health.Snapshot()
}

// Reconcile produces one snapshot per market it could price. Live snapshots
// also refresh the fallback cache so a later total outage can serve recent
// data; cache-served ones do not, so the max age is measured from the last
// live read.
func (r *Reconciler) Reconcile(ctx context.Context, markets []*models.Market, tick uint64) []*models.PriceSnapshot {
	now := r.now()

	pullReadings := r.fetchPull(ctx, markets)
	streamUp := r.streamUsable()

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*models.PriceSnapshot, len(markets))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, m := range markets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, m *models.Market) {
			defer wg.Done()
			defer func() { <-sem }()

			var streamReading *models.Reading
			if streamUp {
				if reading, ok := r.stream.Latest(m.ID); ok && now.Sub(reading.ObservedAt) <= r.cfg.StreamFreshness {
					streamReading = &reading
				}
			}

			var pullReading *models.Reading
			if reading, ok := pullReadings[m.ID]; ok && now.Sub(reading.ObservedAt) <= r.cfg.PullFreshness {
				pullReading = &reading
			}

			results[i] = r.pick(m, streamReading, pullReading, tick)
		}(i, m)
	}
	wg.Wait()

	snaps := make([]*models.PriceSnapshot, 0, len(markets))
	noData := 0
	for i, snap := range results {
		if snap == nil {
			noData++
			continue
		}
		// Only live reads refresh the cache. Re-putting a cache-served
		// snapshot would reset its age and keep a dead market priced forever.
		if snap.Source != models.SourceCache {
			r.cache.Put(snap)
		}
		if yes, ok := snap.YesPrice(markets[i]); ok {
			r.metrics.RecordLastPrice(markets[i].ID, yes)
		}
		snaps = append(snaps, snap)
	}

	if noData > 0 {
		r.metrics.RecordNoData(noData)
		r.log.Warn("reconcile: markets without data",
			logger.Int("count", noData),
			logger.Uint64("tick", tick))
	}
	return snaps
}

// pick applies the failover ladder and tags divergence when both live
// sources priced the market. The preferred source's price always wins; the
// tag only marks disagreement.
func (r *Reconciler) pick(m *models.Market, stream, pull *models.Reading, tick uint64) *models.PriceSnapshot {
	preferred := stream
	if preferred == nil {
		preferred = pull
	}

	if preferred == nil {
		cached, ok := r.cache.Get(m.ID, r.cfg.CacheMaxAge)
		if !ok {
			return nil
		}
		snap := *cached
		snap.Source = models.SourceCache
		snap.Tick = tick
		snap.Divergent = false
		snap.DivergencePct = 0
		return &snap
	}

	snap := &models.PriceSnapshot{
		MarketID:   m.ID,
		Prices:     preferred.Prices,
		Source:     preferred.Source,
		Tick:       tick,
		ObservedAt: preferred.ObservedAt,
		Volume24h:  m.Volume24h,
		Liquidity:  m.Liquidity,
	}

	streamYes, okStream := float64(0), false
	pullYes, okPull := float64(0), false
	if stream != nil {
		streamYes, okStream = stream.YesPrice(m)
	}
	if pull != nil {
		pullYes, okPull = pull.YesPrice(m)
	}
	if okStream && okPull {
		gap := math.Abs(streamYes - pullYes)
		if gap > r.cfg.DivergenceThreshold {
			snap.Divergent = true
			snap.DivergencePct = gap
			r.log.Debug("reconcile: source divergence",
				logger.String("market", m.ID),
				logger.Float64("gap", gap))
		}
	}
	return snap
}

func (r *Reconciler) streamUsable() bool {
	if !r.health.Available(string(models.SourceStream)) {
		return false
	}
	if r.stream.IsConnected() {
		r.health.RecordSuccess(string(models.SourceStream))
		r.metrics.RecordSourceResult(string(models.SourceStream), true)
		return true
	}
	tripped := r.health.RecordFailure(string(models.SourceStream))
	r.metrics.RecordSourceResult(string(models.SourceStream), false)
	if tripped {
		r.log.Warn("reconcile: stream benched after repeated failures")
	}
	return false
}

func (r *Reconciler) fetchPull(ctx context.Context, markets []*models.Market) map[string]models.Reading {
	if !r.health.Available(string(models.SourcePull)) {
		return nil
	}
	readings, err := r.pull.Fetch(ctx, markets)
	if err != nil {
		tripped := r.health.RecordFailure(string(models.SourcePull))
		r.metrics.RecordSourceResult(string(models.SourcePull), false)
		if tripped {
			r.log.Warn("reconcile: pull source benched after repeated failures", logger.Error(err))
		} else {
			r.log.Warn("reconcile: pull fetch failed", logger.Error(err))
		}
		return nil
	}
	r.health.RecordSuccess(string(models.SourcePull))
	r.metrics.RecordSourceResult(string(models.SourcePull), true)
	return readings
}
