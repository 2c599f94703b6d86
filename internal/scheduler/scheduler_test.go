package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/pkg/logger"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []struct {
		tick uint64
		deep bool
	}
	block time.Duration
}

func (r *recordingRunner) RunTick(_ context.Context, tick uint64, deep bool) error {
	r.mu.Lock()
	r.calls = append(r.calls, struct {
		tick uint64
		deep bool
	}{tick, deep})
	r.mu.Unlock()
	if r.block > 0 {
		time.Sleep(r.block)
	}
	return nil
}

func (r *recordingRunner) snapshot() []struct {
	tick uint64
	deep bool
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]struct {
		tick uint64
		deep bool
	}, len(r.calls))
	copy(out, r.calls)
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestDeepScanCadence(t *testing.T) {
	runner := &recordingRunner{}
	s := New(Config{
		Interval:     10 * time.Millisecond,
		Tier2Divisor: 2,
		TierTimeout:  time.Second,
	}, runner, testLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	calls := runner.snapshot()
	if len(calls) < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", len(calls))
	}
	for _, c := range calls {
		wantDeep := c.tick%2 == 0
		if c.deep != wantDeep {
			t.Fatalf("tick %d deep=%v, want %v", c.tick, c.deep, wantDeep)
		}
	}
}

func TestOverlappingTickSkipped(t *testing.T) {
	runner := &recordingRunner{block: 50 * time.Millisecond}
	s := New(Config{
		Interval:     10 * time.Millisecond,
		Tier2Divisor: 5,
		TierTimeout:  time.Second,
	}, runner, testLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 105*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)
	time.Sleep(60 * time.Millisecond)

	fired := s.Tick()
	calls := runner.snapshot()
	if uint64(len(calls)) >= fired {
		t.Fatalf("expected overruns to skip ticks: %d calls for %d slots", len(calls), fired)
	}
	// Skipped slots still consume tick numbers, so executed ticks ascend.
	for i := 1; i < len(calls); i++ {
		if calls[i].tick <= calls[i-1].tick {
			t.Fatalf("tick numbers not monotonic: %v", calls)
		}
	}
}
