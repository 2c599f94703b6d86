package reconcile

import (
	"sync"
	"time"
)

// SourceHealth is the reported condition of one price source.
type SourceHealth struct {
	Source              string    `json:"source"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CooldownUntil       time.Time `json:"cooldown_until,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
}

// InCooldown reports whether the source is currently benched.
func (h SourceHealth) InCooldown(now time.Time) bool {
	return now.Before(h.CooldownUntil)
}

type healthState struct {
	consecutiveFailures int
	cooldownUntil       time.Time
	lastSuccess         time.Time
	lastFailure         time.Time
}

// HealthTracker benches a source after maxFailures consecutive failures and
// lets it back in once the cooldown elapses. One success resets the strike
// count.
type HealthTracker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	sources     map[string]*healthState
	now         func() time.Time
}

func NewHealthTracker(maxFailures int, cooldown time.Duration) *HealthTracker {
	return &HealthTracker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		sources:     make(map[string]*healthState),
		now:         time.Now,
	}
}

// Available reports whether the source may be used this tick.
func (t *HealthTracker) Available(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sources[source]
	if !ok {
		return true
	}
	return !t.now().Before(s.cooldownUntil)
}

// RecordSuccess clears the strike count for a source.
func (t *HealthTracker) RecordSuccess(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(source)
	s.consecutiveFailures = 0
	s.cooldownUntil = time.Time{}
	s.lastSuccess = t.now()
}

// RecordFailure adds a strike. It returns true when this failure tripped the
// source into cooldown.
func (t *HealthTracker) RecordFailure(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(source)
	s.consecutiveFailures++
	s.lastFailure = t.now()
	if s.consecutiveFailures >= t.maxFailures && !t.now().Before(s.cooldownUntil) {
		s.cooldownUntil = t.now().Add(t.cooldown)
		return true
	}
	return false
}

// Snapshot returns the current health of all observed sources.
func (t *HealthTracker) Snapshot() []SourceHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SourceHealth, 0, len(t.sources))
	for name, s := range t.sources {
		out = append(out, SourceHealth{
			Source:              name,
			ConsecutiveFailures: s.consecutiveFailures,
			CooldownUntil:       s.cooldownUntil,
			LastSuccess:         s.lastSuccess,
			LastFailure:         s.lastFailure,
		})
	}
	return out
}

func (t *HealthTracker) state(source string) *healthState {
	s, ok := t.sources[source]
	if !ok {
		s = &healthState{}
		t.sources[source] = s
	}
	return s
}
