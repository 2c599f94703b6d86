package gate

import (
	"context"
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	internalrepo "github.com/wrenwealth/Archantum/internal/repository"
	"github.com/wrenwealth/Archantum/pkg/cache"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testStore() repository.StateStore {
	return internalrepo.NewCacheStateStore(cache.NewMemoryCache(), time.Hour)
}

func testCandidate() *models.OpportunityCandidate {
	return &models.OpportunityCandidate{
		Kind:           models.KindArbitrage,
		DedupKey:       "arb:long:m1",
		MarketIDs:      []string{"m1"},
		Value:          0.03,
		Reason:         "outcomes sum to 0.97",
		NetProfitCents: 2.5,
		DetectedAt:     t0,
	}
}

func score(composite float64) models.Score {
	return models.Score{Composite: composite, Confidence: models.ConfidenceMedium}
}

func TestAdmitEmitsOncePerWindow(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))

	alert, ok := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)
	if !ok || alert == nil {
		t.Fatalf("first detection not emitted")
	}
	if alert.ID == "" {
		t.Fatalf("alert missing id")
	}

	if _, ok := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0.Add(5*time.Minute)); ok {
		t.Fatalf("repeat detection re-emitted within cooldown")
	}

	recent := g.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("expected one tracked alert, got %d", len(recent))
	}
	if recent[0].SuppressedCount != 1 {
		t.Fatalf("suppression not counted: %d", recent[0].SuppressedCount)
	}
}

func TestAdmitHigherTierBreaksThrough(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))

	first, _ := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)

	alert, ok := g.Admit(testCandidate(), score(0.85), models.TierAlpha, t0.Add(5*time.Minute))
	if !ok {
		t.Fatalf("tier upgrade suppressed")
	}
	if alert.Tier != models.TierAlpha {
		t.Fatalf("unexpected tier %s", alert.Tier)
	}
	if alert.ID != first.ID {
		t.Fatalf("upgrade created a new episode")
	}

	// Same tier again goes back to being suppressed.
	if _, ok := g.Admit(testCandidate(), score(0.85), models.TierAlpha, t0.Add(10*time.Minute)); ok {
		t.Fatalf("same tier re-emitted")
	}
}

func TestAdmitScoreFloor(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))
	if _, ok := g.Admit(testCandidate(), score(0.1), models.TierStandard, t0); ok {
		t.Fatalf("sub-floor score emitted")
	}
	if len(g.Recent(10)) != 0 {
		t.Fatalf("dropped candidate was tracked")
	}
}

func TestAdmitAfterCooldownReEmits(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))

	first, _ := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)
	alert, ok := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0.Add(31*time.Minute))
	if !ok {
		t.Fatalf("detection after cooldown suppressed")
	}
	if alert.ID == first.ID {
		t.Fatalf("new window reused the old episode id")
	}
}

func TestSweepAgesOut(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))
	g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)

	// Not re-detected on the next tick: the key cools but stays tracked.
	g.Sweep(t0.Add(time.Minute))
	if g.ActiveCount() != 0 {
		t.Fatalf("idle alert still active")
	}
	if len(g.Recent(10)) != 1 {
		t.Fatalf("cooling alert dropped early")
	}

	// A full cooldown after the last detection the episode is gone.
	g.Sweep(t0.Add(31 * time.Minute))
	if len(g.Recent(10)) != 0 {
		t.Fatalf("expired alert not dropped")
	}
}

func TestSweepCoolingRecurrenceRejoinsEpisode(t *testing.T) {
	g := New(30*time.Minute, 0.25, testStore(), testLogger(t))
	first, _ := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)
	g.Sweep(t0.Add(time.Minute))

	// The mispricing comes back while the key is cooling: same episode,
	// re-activated silently.
	if _, ok := g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0.Add(10*time.Minute)); ok {
		t.Fatalf("cooling recurrence re-announced")
	}
	if g.ActiveCount() != 1 {
		t.Fatalf("cooling key not re-activated")
	}
	recent := g.Recent(10)
	if len(recent) != 1 || recent[0].ID != first.ID {
		t.Fatalf("recurrence opened a new episode")
	}
}

func TestPersistRestore(t *testing.T) {
	store := testStore()
	log := testLogger(t)
	ctx := context.Background()

	g := New(30*time.Minute, 0.25, store, log)
	g.Admit(testCandidate(), score(0.6), models.TierHighValue, t0)
	g.Persist(ctx)

	fresh := New(30*time.Minute, 0.25, store, log)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// Still inside the cooldown after restart: no duplicate announcement.
	if _, ok := fresh.Admit(testCandidate(), score(0.6), models.TierHighValue, t0.Add(5*time.Minute)); ok {
		t.Fatalf("restart re-announced a live episode")
	}
}
