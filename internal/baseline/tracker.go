package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

const keyPrefix = "baseline:"

// View is the read-only face analyzers get. They compare current values
// against the rolling average but never feed the tracker themselves.
type View interface {
	// Average returns the rolling mean for a key, false until the window has
	// at least the configured minimum of samples.
	Average(key string) (float64, bool)
}

// Tracker keeps a decaying rolling window per key. Samples age out by the
// retention horizon, never by a count cap, and observing the same tick twice
// is a no-op so retried ticks cannot double-count.
type Tracker struct {
	mu         sync.Mutex
	retention  time.Duration
	minSamples int
	records    map[string]*models.BaselineRecord
	store      repository.StateStore
	log        *logger.Logger
}

func NewTracker(retention time.Duration, minSamples int, store repository.StateStore, log *logger.Logger) *Tracker {
	return &Tracker{
		retention:  retention,
		minSamples: minSamples,
		records:    make(map[string]*models.BaselineRecord),
		store:      store,
		log:        log,
	}
}

// Observe folds one observation into the window for key. Duplicate ticks are
// dropped.
func (t *Tracker) Observe(key string, value float64, at time.Time, tick uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		rec = &models.BaselineRecord{Key: key}
		t.records[key] = rec
	}
	if ok && rec.LastTick == tick {
		return
	}

	rec.Samples = append(rec.Samples, models.BaselineSample{Value: value, At: at})
	rec.Sum += value
	rec.Count++
	rec.LastTick = tick

	t.evict(rec, at)
}

// Average returns the rolling mean, false while the window is too thin to
// trust.
func (t *Tracker) Average(key string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok || rec.Count < t.minSamples {
		return 0, false
	}
	return rec.Mean()
}

// Restore loads persisted windows from the state store. A missing or
// unreadable record is skipped; the tracker then rebuilds that window from
// live ticks.
func (t *Tracker) Restore(ctx context.Context) error {
	keys, err := t.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("baseline restore: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	restored := 0
	for _, key := range keys {
		raw, err := t.store.Load(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrUnknownKey) {
				continue
			}
			t.log.Warn("baseline: record load failed",
				logger.String("key", key),
				logger.Error(err))
			continue
		}
		var rec models.BaselineRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.log.Warn("baseline: record corrupt, dropping",
				logger.String("key", key),
				logger.Error(err))
			continue
		}
		t.evict(&rec, time.Now())
		t.records[rec.Key] = &rec
		restored++
	}

	t.log.Info("baseline: restored", logger.Int("records", restored))
	return nil
}

// Persist writes every window to the state store. Failures degrade to
// memory-only operation; the tick is never blocked on persistence.
func (t *Tracker) Persist(ctx context.Context) {
	t.mu.Lock()
	recs := make([]*models.BaselineRecord, 0, len(t.records))
	for _, rec := range t.records {
		recs = append(recs, rec)
	}
	t.mu.Unlock()

	failed := 0
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if err := t.store.Save(ctx, keyPrefix+rec.Key, raw); err != nil {
			failed++
		}
	}
	if failed > 0 {
		t.log.Warn("baseline: persistence degraded, continuing in memory",
			logger.Int("failed", failed))
	}
}

// evict drops samples older than the retention horizon. Caller holds the lock.
func (t *Tracker) evict(rec *models.BaselineRecord, now time.Time) {
	cutoff := now.Add(-t.retention)
	dropped := 0
	for _, s := range rec.Samples {
		if s.At.After(cutoff) {
			break
		}
		rec.Sum -= s.Value
		rec.Count--
		dropped++
	}
	if dropped > 0 {
		rec.Samples = append(rec.Samples[:0], rec.Samples[dropped:]...)
	}
}
