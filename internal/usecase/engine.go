package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/analysis"
	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/dispatch"
	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/internal/gate"
	"github.com/wrenwealth/Archantum/internal/reconcile"
	"github.com/wrenwealth/Archantum/internal/scoring"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// Status is the engine's last-tick summary for the status endpoint.
type Status struct {
	Tick          uint64                   `json:"tick"`
	At            time.Time                `json:"at"`
	Deep          bool                     `json:"deep"`
	Markets       int                      `json:"markets"`
	Snapshots     int                      `json:"snapshots"`
	Candidates    int                      `json:"candidates"`
	AlertsEmitted int                      `json:"alerts_emitted"`
	ActiveAlerts  int                      `json:"active_alerts"`
	Sources       []reconcile.SourceHealth `json:"sources"`
	DurationMs    int64                    `json:"duration_ms"`
}

// Engine runs one full analysis pass per tick: refresh the universe,
// reconcile prices, archive, analyze, score, gate, dispatch, then feed the
// baselines so the next tick compares against history that does not include
// itself.
type Engine struct {
	catalog    repository.Catalog
	stream     repository.StreamSource
	reconciler *reconcile.Reconciler
	archive    repository.SnapshotArchive
	registry   *analysis.Registry
	tracker    *baseline.Tracker
	scorer     *scoring.Scorer
	gate       *gate.Gate
	dispatcher *dispatch.Dispatcher
	metrics    repository.Metrics
	log        *logger.Logger

	mu          sync.RWMutex
	markets     []*models.Market
	events      []*models.Event
	universeKey string
	status      Status
}

func NewEngine(
	catalog repository.Catalog,
	stream repository.StreamSource,
	reconciler *reconcile.Reconciler,
	archive repository.SnapshotArchive,
	registry *analysis.Registry,
	tracker *baseline.Tracker,
	scorer *scoring.Scorer,
	g *gate.Gate,
	dispatcher *dispatch.Dispatcher,
	metrics repository.Metrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		catalog:    catalog,
		stream:     stream,
		reconciler: reconciler,
		archive:    archive,
		registry:   registry,
		tracker:    tracker,
		scorer:     scorer,
		gate:       g,
		dispatcher: dispatcher,
		metrics:    metrics,
		log:        log,
	}
}

// RunTick executes one analysis pass. deep includes the tier-2 analyzers.
func (e *Engine) RunTick(ctx context.Context, tick uint64, deep bool) error {
	start := time.Now()

	markets, events := e.refreshUniverse(ctx)
	if len(markets) == 0 {
		return fmt.Errorf("tick %d: no tracked markets", tick)
	}

	snaps := e.reconciler.Reconcile(ctx, markets, tick)
	set := buildSet(tick, start, snaps, markets, events)

	if err := e.archive.WriteSnapshots(ctx, set); err != nil {
		// History degrades, the tick does not stop.
		e.log.Warn("engine: archive write failed", logger.Error(err))
	}

	// Analyzers share only read access to the set and the baseline view, so
	// they fan out; gating stays sequential to keep per-key transitions and
	// emission order deterministic.
	analyzers := e.registry.ForTick(deep)
	results := make([][]models.OpportunityCandidate, len(analyzers))
	done := make(chan int, len(analyzers))
	for i, a := range analyzers {
		go func(i int, a analysis.Analyzer) {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("engine: analyzer panicked, skipping for tick",
						logger.String("analyzer", a.Name()),
						logger.Any("panic", r))
				}
				done <- i
			}()
			results[i] = a.Analyze(ctx, set, e.tracker)
		}(i, a)
	}

	// Wait for the fan-out, but never past the tick deadline: an analyzer
	// that overruns is abandoned so it cannot hold every later tick hostage.
	completed := make([]bool, len(analyzers))
	waiting := len(analyzers)
wait:
	for waiting > 0 {
		select {
		case i := <-done:
			completed[i] = true
			waiting--
		case <-ctx.Done():
			break wait
		}
	}
	if waiting > 0 {
		for i, a := range analyzers {
			if !completed[i] {
				e.log.Warn("engine: analyzer overran the tick, result discarded",
					logger.String("analyzer", a.Name()))
			}
		}
	}

	candidates := 0
	emitted := 0
	for i, a := range analyzers {
		if !completed[i] {
			continue
		}
		cands := results[i]
		e.metrics.RecordCandidates(a.Name(), len(cands))
		candidates += len(cands)

		for j := range cands {
			c := &cands[j]
			score, tier := e.scorer.Score(c, set)
			alert, ok := e.gate.Admit(c, score, tier, set.At)
			if !ok {
				e.metrics.RecordSuppressed(string(c.Kind))
				continue
			}
			emitted++
			e.metrics.RecordAlert(string(alert.Kind), string(alert.Tier))
			if err := e.dispatcher.Dispatch(ctx, alert); err != nil {
				e.log.Warn("engine: alert delivery deferred",
					logger.String("alert", alert.ID),
					logger.Error(err))
			}
		}
	}

	e.gate.Sweep(set.At)
	e.observeBaselines(set)
	e.tracker.Persist(ctx)
	e.gate.Persist(ctx)

	tier := 1
	if deep {
		tier = 2
	}
	e.metrics.RecordTick(tier)
	e.metrics.RecordLatency("tick", time.Since(start).Seconds())

	status := Status{
		Tick:          tick,
		At:            start,
		Deep:          deep,
		Markets:       len(markets),
		Snapshots:     len(snaps),
		Candidates:    candidates,
		AlertsEmitted: emitted,
		ActiveAlerts:  e.gate.ActiveCount(),
		Sources:       e.reconciler.Health(),
		DurationMs:    time.Since(start).Milliseconds(),
	}
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()

	e.log.Info("engine: tick complete",
		logger.Uint64("tick", tick),
		logger.Bool("deep", deep),
		logger.Int("snapshots", len(snaps)),
		logger.Int("candidates", candidates),
		logger.Int("alerts", emitted),
		logger.Duration("took", time.Since(start)))
	return nil
}

// Status returns the last tick's summary.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// RecentAlerts returns the gate's most recently seen alerts.
func (e *Engine) RecentAlerts(limit int) []*models.Alert {
	return e.gate.Recent(limit)
}

// Restore reloads persisted baseline and gate state. Failures are logged and
// the engine starts cold instead.
func (e *Engine) Restore(ctx context.Context) {
	if err := e.tracker.Restore(ctx); err != nil {
		e.log.Warn("engine: baseline restore failed, starting cold", logger.Error(err))
	}
	if err := e.gate.Restore(ctx); err != nil {
		e.log.Warn("engine: gate restore failed, starting cold", logger.Error(err))
	}
}

// refreshUniverse pulls the catalog and resubscribes the stream when the
// tracked market set changed. A catalog failure keeps the previous universe.
func (e *Engine) refreshUniverse(ctx context.Context) ([]*models.Market, []*models.Event) {
	markets, events, err := e.catalog.Markets(ctx)
	if err != nil {
		e.log.Warn("engine: catalog refresh failed, keeping universe", logger.Error(err))
		e.mu.RLock()
		defer e.mu.RUnlock()
		return e.markets, e.events
	}

	key := universeKey(markets)

	e.mu.Lock()
	changed := key != e.universeKey
	e.markets = markets
	e.events = events
	e.universeKey = key
	e.mu.Unlock()

	if changed && e.stream.IsConnected() {
		if err := e.stream.Subscribe(ctx, markets); err != nil {
			e.log.Warn("engine: stream resubscribe failed", logger.Error(err))
		}
	}
	return markets, events
}

// observeBaselines feeds the rolling windows after analysis so the current
// tick never compares against itself. The tracker drops duplicate ticks.
func (e *Engine) observeBaselines(set *models.SnapshotSet) {
	for id, snap := range set.Snapshots {
		e.tracker.Observe(baseline.VolumeKey(id), snap.Volume24h, set.At, set.Tick)
	}

	for eventID, ev := range set.Events {
		if !ev.Exclusive || len(ev.MarketIDs) < 2 {
			continue
		}
		bound := ev.SumBound
		if bound <= 0 {
			bound = 1
		}
		total := 0.0
		complete := true
		for _, id := range ev.MarketIDs {
			snap := set.Snapshot(id)
			m := set.Market(id)
			if snap == nil || m == nil {
				complete = false
				break
			}
			yes, ok := snap.YesPrice(m)
			if !ok {
				complete = false
				break
			}
			total += yes
		}
		if !complete {
			continue
		}
		// Deviation magnitude in either direction; overpriced sets build
		// history the same way underpriced ones do.
		gap := math.Abs(bound - total)
		e.tracker.Observe(baseline.EventGapKey(eventID), gap, set.At, set.Tick)
	}
}

func buildSet(tick uint64, at time.Time, snaps []*models.PriceSnapshot, markets []*models.Market, events []*models.Event) *models.SnapshotSet {
	set := &models.SnapshotSet{
		Tick:      tick,
		At:        at,
		Snapshots: make(map[string]*models.PriceSnapshot, len(snaps)),
		Markets:   make(map[string]*models.Market, len(markets)),
		Events:    make(map[string]*models.Event, len(events)),
	}
	for _, s := range snaps {
		set.Snapshots[s.MarketID] = s
	}
	for _, m := range markets {
		set.Markets[m.ID] = m
	}
	for _, ev := range events {
		set.Events[ev.ID] = ev
	}
	return set
}

func universeKey(markets []*models.Market) string {
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
