package analysis

import (
	"context"

	"github.com/wrenwealth/Archantum/internal/baseline"
	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// Tier buckets analyzers by cadence. Tier 1 runs every tick, tier 2 only on
// the scheduler's deep-scan ticks.
const (
	Tier1 = 1
	Tier2 = 2
)

// Divergence policies. Exclude drops tagged snapshots from analysis;
// downweight keeps them but marks the candidate so scoring discounts it.
const (
	PolicyExclude    = "exclude"
	PolicyDownweight = "downweight"
)

// Analyzer inspects one tick's snapshot set and reports opportunity
// candidates. Analyzers never mutate the set and never talk to each other;
// everything they share arrives through the set and the baseline view.
type Analyzer interface {
	Name() string
	Kind() models.CandidateKind
	Analyze(ctx context.Context, set *models.SnapshotSet, base baseline.View) []models.OpportunityCandidate
}

// Entry pairs an analyzer with its cadence tier.
type Entry struct {
	Analyzer Analyzer
	Tier     int
}

// Registry is the fixed, ordered analyzer set. It is assembled once at
// startup; nothing registers or unregisters at runtime, so a tick always
// runs the same analyzers in the same order.
type Registry struct {
	entries []Entry
}

func NewRegistry(entries ...Entry) *Registry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return &Registry{entries: out}
}

// ForTick returns the analyzers due on this tick. Tier 2 analyzers are
// included only when deep is set.
func (r *Registry) ForTick(deep bool) []Analyzer {
	out := make([]Analyzer, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Tier == Tier2 && !deep {
			continue
		}
		out = append(out, e.Analyzer)
	}
	return out
}

// Names lists all registered analyzer names in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Analyzer.Name())
	}
	return out
}

// divergencePolicy is embedded by analyzers to apply the configured handling
// of snapshots whose sources disagreed.
type divergencePolicy struct {
	downweight bool
}

func newDivergencePolicy(policy string) divergencePolicy {
	return divergencePolicy{downweight: policy == PolicyDownweight}
}

// skip reports whether the snapshot must be left out of analysis entirely.
func (p divergencePolicy) skip(s *models.PriceSnapshot) bool {
	return s != nil && s.Divergent && !p.downweight
}

// tag marks a candidate that was built on divergent data under the
// downweight policy.
func (p divergencePolicy) tag(c *models.OpportunityCandidate, snaps ...*models.PriceSnapshot) {
	if !p.downweight {
		return
	}
	for _, s := range snaps {
		if s != nil && s.Divergent {
			c.Divergent = true
			return
		}
	}
}
