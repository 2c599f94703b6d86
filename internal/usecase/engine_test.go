package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/internal/analysis"
	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/dispatch"
	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/internal/gate"
	"github.com/wrenwealth/Archantum/internal/reconcile"
	internalrepo "github.com/wrenwealth/Archantum/internal/repository"
	"github.com/wrenwealth/Archantum/internal/scoring"
	"github.com/wrenwealth/Archantum/internal/snapcache"
	"github.com/wrenwealth/Archantum/pkg/cache"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

type fakeCatalog struct {
	markets []*models.Market
	events  []*models.Event
}

func (c *fakeCatalog) Markets(context.Context) ([]*models.Market, []*models.Event, error) {
	return c.markets, c.events, nil
}

type deadStream struct{}

func (deadStream) Connect(context.Context) error                     { return repository.ErrSourceUnavailable }
func (deadStream) Subscribe(context.Context, []*models.Market) error { return nil }
func (deadStream) Latest(string) (models.Reading, bool)              { return models.Reading{}, false }
func (deadStream) Reconnect(context.Context) error                   { return repository.ErrSourceUnavailable }
func (deadStream) IsConnected() bool                                 { return false }
func (deadStream) Close() error                                      { return nil }

type fakePull struct {
	readings map[string]models.Reading
}

func (p *fakePull) Fetch(context.Context, []*models.Market) (map[string]models.Reading, error) {
	out := make(map[string]models.Reading, len(p.readings))
	for id, r := range p.readings {
		r.ObservedAt = time.Now()
		out[id] = r
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, a *models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(int)                  {}
func (nopMetrics) RecordSourceResult(string, bool) {}
func (nopMetrics) RecordCandidates(string, int)    {}
func (nopMetrics) RecordAlert(string, string)      {}
func (nopMetrics) RecordSuppressed(string)         {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordNoData(int)                {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func binaryMarket(id string) *models.Market {
	return &models.Market{
		ID:        id,
		Question:  "does " + id + " resolve yes",
		Platform:  models.PlatformPolymarket,
		Outcomes:  []models.Outcome{{ID: id + "-yes"}, {ID: id + "-no"}},
		Volume24h: 5000,
		Liquidity: 20000,
	}
}

func pullReading(id string, yes, no float64) models.Reading {
	return models.Reading{
		MarketID: id,
		Prices:   map[string]float64{id + "-yes": yes, id + "-no": no},
		Source:   models.SourcePull,
	}
}

// stallingAnalyzer blocks until released, standing in for an analyzer that
// overruns the tick deadline.
type stallingAnalyzer struct {
	release chan struct{}
}

func (s *stallingAnalyzer) Name() string               { return "stalling" }
func (s *stallingAnalyzer) Kind() models.CandidateKind { return models.KindPriceMove }
func (s *stallingAnalyzer) Analyze(context.Context, *models.SnapshotSet, baseline.View) []models.OpportunityCandidate {
	<-s.release
	return []models.OpportunityCandidate{{
		Kind:     models.KindPriceMove,
		DedupKey: "move:m2:up",
	}}
}

// newTestEngine wires a real pipeline over fake sources. Only the arbitrage
// analyzer runs so emissions are easy to reason about.
func newTestEngine(t *testing.T, notifier repository.Notifier, extra ...analysis.Entry) *Engine {
	t.Helper()
	log := testLogger(t)
	store := internalrepo.NewCacheStateStore(cache.NewMemoryCache(), time.Hour)

	catalog := &fakeCatalog{
		markets: []*models.Market{binaryMarket("m1"), binaryMarket("m2")},
	}
	pull := &fakePull{readings: map[string]models.Reading{
		"m1": pullReading("m1", 0.48, 0.49),
		"m2": pullReading("m2", 0.60, 0.40),
	}}

	reconciler := reconcile.New(reconcile.Config{
		StreamFreshness:     10 * time.Second,
		PullFreshness:       time.Minute,
		CacheMaxAge:         time.Minute,
		DivergenceThreshold: 0.02,
	}, deadStream{}, pull, snapcache.New(), reconcile.NewHealthTracker(3, time.Minute), nopMetrics{}, log)

	entries := append([]analysis.Entry{{
		Analyzer: analysis.NewArbitrage(analysis.ArbitrageConfig{
			Threshold:        0.01,
			FeePerSide:       0.02,
			SlippageCents:    0.5,
			MinProfitCents:   0.5,
			DivergencePolicy: analysis.PolicyExclude,
		}),
		Tier: analysis.Tier1,
	}}, extra...)
	registry := analysis.NewRegistry(entries...)

	tracker := baseline.NewTracker(time.Hour, 3, store, log)
	scorer := scoring.New(scoring.Weights{Liquidity: 0.35, Stability: 0.25, Time: 0.25, Complexity: 0.15})
	g := gate.New(30*time.Minute, 0.25, store, log)
	dispatcher := dispatch.New(notifier, nopMetrics{}, log)
	archive := internalrepo.NewMemoryArchive(time.Hour)

	return NewEngine(catalog, deadStream{}, reconciler, archive, registry,
		tracker, scorer, g, dispatcher, nopMetrics{}, log)
}

func TestRunTickEmitsArbitrageAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	e := newTestEngine(t, notifier)

	if err := e.RunTick(context.Background(), 1, true); err != nil {
		t.Fatalf("tick: %v", err)
	}

	status := e.Status()
	if status.Tick != 1 || !status.Deep {
		t.Fatalf("unexpected status header: %+v", status)
	}
	if status.Markets != 2 || status.Snapshots != 2 {
		t.Fatalf("universe not priced: %+v", status)
	}
	if status.Candidates != 1 || status.AlertsEmitted != 1 {
		t.Fatalf("expected one arbitrage alert, got %+v", status)
	}
	if status.ActiveAlerts != 1 {
		t.Fatalf("active count %d, want 1", status.ActiveAlerts)
	}

	if notifier.count() != 1 {
		t.Fatalf("notifier received %d alerts, want 1", notifier.count())
	}
	a := notifier.alerts[0]
	if a.Kind != models.KindArbitrage || a.DedupKey != "arb:long:m1" {
		t.Fatalf("wrong alert delivered: kind %s key %q", a.Kind, a.DedupKey)
	}
}

func TestRunTickSuppressesRepeat(t *testing.T) {
	notifier := &recordingNotifier{}
	e := newTestEngine(t, notifier)
	ctx := context.Background()

	if err := e.RunTick(ctx, 1, true); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if err := e.RunTick(ctx, 2, true); err != nil {
		t.Fatalf("tick 2: %v", err)
	}

	status := e.Status()
	if status.Tick != 2 {
		t.Fatalf("status not refreshed: %+v", status)
	}
	// Same mispricing, same window: detected again but not announced again.
	if status.Candidates != 1 || status.AlertsEmitted != 0 {
		t.Fatalf("repeat detection re-emitted: %+v", status)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier received %d alerts, want 1", notifier.count())
	}
}

func TestRunTickAbandonsOverrunningAnalyzer(t *testing.T) {
	notifier := &recordingNotifier{}
	slow := &stallingAnalyzer{release: make(chan struct{})}
	e := newTestEngine(t, notifier, analysis.Entry{Analyzer: slow, Tier: analysis.Tier1})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.RunTick(ctx, 1, true)
	took := time.Since(start)
	close(slow.release)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if took > 2*time.Second {
		t.Fatalf("overrunning analyzer held the tick for %v", took)
	}

	// The finished analyzer's output still goes through; the stalled one's
	// never arrives.
	status := e.Status()
	if status.Candidates != 1 || status.AlertsEmitted != 1 {
		t.Fatalf("fast analyzer output lost: %+v", status)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier received %d alerts, want 1", notifier.count())
	}
	if notifier.alerts[0].Kind != models.KindArbitrage {
		t.Fatalf("wrong alert delivered: %s", notifier.alerts[0].Kind)
	}
}

func TestRecentAlertsLimit(t *testing.T) {
	e := newTestEngine(t, &recordingNotifier{})
	if err := e.RunTick(context.Background(), 1, true); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got := e.RecentAlerts(10)
	if len(got) != 1 {
		t.Fatalf("expected 1 recent alert, got %d", len(got))
	}

	// Returned alerts are copies; callers cannot corrupt gate state.
	got[0].Tier = models.TierStandard
	if again := e.RecentAlerts(10); again[0].Tier == models.TierStandard {
		t.Fatalf("recent alerts share gate memory")
	}
}
