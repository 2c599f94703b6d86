package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/wrenwealth/Archantum/pkg/logger"
)

// TickRunner is what the scheduler drives once per interval.
type TickRunner interface {
	RunTick(ctx context.Context, tick uint64, deep bool) error
}

// Config carries the cadence knobs.
type Config struct {
	Interval     time.Duration
	Tier2Divisor int // every Kth tick is a deep scan
	TierTimeout  time.Duration
}

// Scheduler fires ticks on a fixed cadence. Every Kth tick is a deep scan
// that includes the tier-2 analyzers. Ticks never overlap: if the previous
// one is still running when the next fires, the new one is skipped and the
// overrun logged, keeping tick numbers aligned with wall-clock slots.
type Scheduler struct {
	cfg     Config
	runner  TickRunner
	log     *logger.Logger
	running atomic.Bool
	tick    atomic.Uint64
}

func New(cfg Config, runner TickRunner, log *logger.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, runner: runner, log: log}
}

// Run blocks until the context is cancelled. The first tick fires
// immediately rather than waiting one full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// Tick returns the number of the last fired tick.
func (s *Scheduler) Tick() uint64 {
	return s.tick.Load()
}

func (s *Scheduler) fire(ctx context.Context) {
	tick := s.tick.Add(1)
	deep := s.cfg.Tier2Divisor > 0 && tick%uint64(s.cfg.Tier2Divisor) == 0

	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("scheduler: previous tick still running, skipping",
			logger.Uint64("tick", tick))
		return
	}

	go func() {
		defer s.running.Store(false)

		tctx, cancel := context.WithTimeout(ctx, s.cfg.TierTimeout)
		defer cancel()

		if err := s.runTick(tctx, tick, deep); err != nil {
			s.log.Error("scheduler: tick failed",
				logger.Uint64("tick", tick),
				logger.Error(err))
		}
	}()
}

// runTick isolates panics so one bad analyzer pass cannot take the process
// down.
func (s *Scheduler) runTick(ctx context.Context, tick uint64, deep bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
			s.log.Error("scheduler: tick panicked",
				logger.Uint64("tick", tick),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
		}
	}()
	return s.runner.RunTick(ctx, tick, deep)
}
