package baseline

import (
	"context"
	"testing"
	"time"

	internalrepo "github.com/wrenwealth/Archantum/internal/repository"
	"github.com/wrenwealth/Archantum/pkg/cache"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestTracker(t *testing.T, retention time.Duration, minSamples int) *Tracker {
	t.Helper()
	store := internalrepo.NewCacheStateStore(cache.NewMemoryCache(), time.Hour)
	return NewTracker(retention, minSamples, store, testLogger(t))
}

func TestAverageNeedsMinSamples(t *testing.T) {
	tr := newTestTracker(t, time.Hour, 3)
	now := time.Now()

	tr.Observe("vol:m1", 100, now, 1)
	tr.Observe("vol:m1", 200, now.Add(time.Minute), 2)
	if _, ok := tr.Average("vol:m1"); ok {
		t.Fatalf("average reported on thin window")
	}

	tr.Observe("vol:m1", 300, now.Add(2*time.Minute), 3)
	avg, ok := tr.Average("vol:m1")
	if !ok {
		t.Fatalf("expected average")
	}
	if avg != 200 {
		t.Fatalf("unexpected average %v", avg)
	}
}

func TestDuplicateTickIgnored(t *testing.T) {
	tr := newTestTracker(t, time.Hour, 1)
	now := time.Now()

	tr.Observe("vol:m1", 100, now, 1)
	tr.Observe("vol:m1", 900, now, 1)

	avg, ok := tr.Average("vol:m1")
	if !ok || avg != 100 {
		t.Fatalf("retried tick double-counted: %v %v", avg, ok)
	}
}

func TestSamplesAgeOut(t *testing.T) {
	tr := newTestTracker(t, time.Hour, 1)
	now := time.Now()

	tr.Observe("vol:m1", 100, now.Add(-2*time.Hour), 1)
	tr.Observe("vol:m1", 300, now, 2)

	avg, ok := tr.Average("vol:m1")
	if !ok {
		t.Fatalf("expected average")
	}
	if avg != 300 {
		t.Fatalf("stale sample survived retention: %v", avg)
	}
}

func TestPersistRestore(t *testing.T) {
	store := internalrepo.NewCacheStateStore(cache.NewMemoryCache(), time.Hour)
	log := testLogger(t)
	ctx := context.Background()
	now := time.Now()

	tr := NewTracker(time.Hour, 1, store, log)
	tr.Observe("vol:m1", 100, now, 1)
	tr.Observe("gap:e1", 0.05, now, 1)
	tr.Persist(ctx)

	fresh := NewTracker(time.Hour, 1, store, log)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if avg, ok := fresh.Average("vol:m1"); !ok || avg != 100 {
		t.Fatalf("volume window lost: %v %v", avg, ok)
	}
	if avg, ok := fresh.Average("gap:e1"); !ok || avg != 0.05 {
		t.Fatalf("gap window lost: %v %v", avg, ok)
	}
}

func TestKeys(t *testing.T) {
	if VolumeKey("m1") != "vol:m1" {
		t.Fatalf("unexpected volume key %q", VolumeKey("m1"))
	}
	if EventGapKey("e1") != "gap:e1" {
		t.Fatalf("unexpected gap key %q", EventGapKey("e1"))
	}
}
