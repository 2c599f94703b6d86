package models

import "time"

// BaselineSample is one observation inside a baseline window.
type BaselineSample struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// BaselineRecord is the decaying rolling statistic for one (key, metric)
// pair. Samples are evicted by age against the retention horizon, never by a
// count cap; the count only grows within a window.
type BaselineRecord struct {
	Key      string           `json:"key"`
	Sum      float64          `json:"sum"`
	Count    int              `json:"count"`
	Samples  []BaselineSample `json:"samples"`
	LastTick uint64           `json:"last_tick"`
}

// Mean returns the current rolling mean, false when the record is empty.
func (r *BaselineRecord) Mean() (float64, bool) {
	if r.Count == 0 {
		return 0, false
	}
	return r.Sum / float64(r.Count), true
}
