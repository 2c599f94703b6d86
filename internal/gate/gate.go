package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

const keyPrefix = "gate:"

// Gate decides which scored candidates become alerts. One alert per dedup
// key per cooldown window; within the window a repeat detection only gets
// through when its tier is strictly higher than what was already announced.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	minScore float64
	entries  map[string]*models.Alert
	store    repository.StateStore
	log      *logger.Logger
}

func New(cooldown time.Duration, minScore float64, store repository.StateStore, log *logger.Logger) *Gate {
	return &Gate{
		cooldown: cooldown,
		minScore: minScore,
		entries:  make(map[string]*models.Alert),
		store:    store,
		log:      log,
	}
}

// Admit runs one scored candidate through the gate. The returned alert is
// non-nil only when it should be emitted this tick.
func (g *Gate) Admit(c *models.OpportunityCandidate, score models.Score, tier models.Tier, now time.Time) (*models.Alert, bool) {
	if score.Composite < g.minScore {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	prev, ok := g.entries[c.DedupKey]
	if ok && prev.State != models.AlertExpired && now.Sub(prev.LastSeenAt) < g.cooldown {
		if tier.Above(prev.Tier) {
			// A materially better read on the same opportunity re-announces.
			prev.Tier = tier
			prev.Score = score
			prev.Value = c.Value
			prev.NetProfitCents = c.NetProfitCents
			prev.Reason = c.Reason
			prev.LastSeenAt = now
			prev.State = models.AlertActive
			return cloneAlert(prev), true
		}
		prev.SuppressedCount++
		prev.LastSeenAt = now
		prev.State = models.AlertActive
		return nil, false
	}

	alert := &models.Alert{
		ID:             uuid.NewString(),
		Kind:           c.Kind,
		Tier:           tier,
		Score:          score,
		DedupKey:       c.DedupKey,
		MarketIDs:      append([]string(nil), c.MarketIDs...),
		EventID:        c.EventID,
		Reason:         c.Reason,
		Value:          c.Value,
		NetProfitCents: c.NetProfitCents,
		FirstSeenAt:    now,
		LastSeenAt:     now,
		State:          models.AlertActive,
	}
	g.entries[c.DedupKey] = alert
	return cloneAlert(alert), true
}

// Sweep advances the per-key state machine after a tick: active keys not
// re-detected this tick cool off, cooling keys a full cooldown past their
// last detection expire and are dropped. A recurrence while cooling goes
// through Admit, which re-activates the same episode.
func (g *Gate) Sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, a := range g.entries {
		switch a.State {
		case models.AlertActive:
			if now.After(a.LastSeenAt) {
				a.State = models.AlertCooling
			}
		case models.AlertCooling:
			if now.Sub(a.LastSeenAt) >= g.cooldown {
				a.State = models.AlertExpired
				delete(g.entries, key)
			}
		}
	}
}

// Recent returns up to limit alerts ordered by most recently seen.
func (g *Gate) Recent(limit int) []*models.Alert {
	g.mu.Lock()
	out := make([]*models.Alert, 0, len(g.entries))
	for _, a := range g.entries {
		out = append(out, cloneAlert(a))
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ActiveCount returns how many keys are currently active.
func (g *Gate) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, a := range g.entries {
		if a.State == models.AlertActive {
			n++
		}
	}
	return n
}

// Restore loads gate state from the store so restarts do not re-announce
// everything still inside its cooldown.
func (g *Gate) Restore(ctx context.Context) error {
	keys, err := g.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("gate restore: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	restored := 0
	for _, key := range keys {
		raw, err := g.store.Load(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrUnknownKey) {
				continue
			}
			g.log.Warn("gate: entry load failed", logger.String("key", key), logger.Error(err))
			continue
		}
		var a models.Alert
		if err := json.Unmarshal(raw, &a); err != nil {
			g.log.Warn("gate: entry corrupt, dropping", logger.String("key", key), logger.Error(err))
			continue
		}
		if a.State == models.AlertExpired {
			continue
		}
		g.entries[a.DedupKey] = &a
		restored++
	}

	g.log.Info("gate: restored", logger.Int("entries", restored))
	return nil
}

// Persist writes gate state to the store. Failure degrades to memory-only
// dedup, never blocks the tick.
func (g *Gate) Persist(ctx context.Context) {
	g.mu.Lock()
	entries := make([]*models.Alert, 0, len(g.entries))
	for _, a := range g.entries {
		entries = append(entries, cloneAlert(a))
	}
	g.mu.Unlock()

	failed := 0
	for _, a := range entries {
		raw, err := json.Marshal(a)
		if err != nil {
			continue
		}
		if err := g.store.Save(ctx, keyPrefix+a.DedupKey, raw); err != nil {
			failed++
		}
	}
	if failed > 0 {
		g.log.Warn("gate: persistence degraded, continuing in memory", logger.Int("failed", failed))
	}
}

func cloneAlert(a *models.Alert) *models.Alert {
	cp := *a
	cp.MarketIDs = append([]string(nil), a.MarketIDs...)
	return &cp
}
