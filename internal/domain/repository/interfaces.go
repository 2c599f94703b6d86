package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
)

// ErrSourceUnavailable marks an adapter-level failure. It is recovered by
// failover and backoff, never treated as fatal.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrUnknownKey is returned by StateStore.Load when no record exists.
var ErrUnknownKey = errors.New("unknown key")

// StreamSource is a push-based price feed. The implementation keeps the most
// recent reading per market, with a monotonically increasing sequence number;
// stale sequence numbers are dropped, never reordered.
type StreamSource interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, markets []*models.Market) error
	Latest(marketID string) (models.Reading, bool)
	Reconnect(ctx context.Context) error
	IsConnected() bool
	Close() error
}

// PullSource is a request/response price feed.
type PullSource interface {
	// Fetch returns a reading per market it could price. A total failure
	// returns ErrSourceUnavailable; partial results are not an error.
	Fetch(ctx context.Context, markets []*models.Market) (map[string]models.Reading, error)
}

// Catalog lists the markets and events to track, refreshed each tick.
type Catalog interface {
	Markets(ctx context.Context) ([]*models.Market, []*models.Event, error)
}

// StateStore is the narrow persistence contract for baseline and alert gate
// state. Writes are whole-record replace; crash recovery only guarantees the
// last successfully saved record.
type StateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, record []byte) error
	// Keys matches a redis-style pattern with an optional trailing "*".
	Keys(ctx context.Context, pattern string) ([]string, error)
	Health(ctx context.Context) error
}

// SnapshotArchive persists authoritative snapshots and answers the history
// queries analyzers need. Archive failure degrades analyzers that depend on
// history; it never blocks the tick.
type SnapshotArchive interface {
	WriteSnapshots(ctx context.Context, set *models.SnapshotSet) error
	// PriceAt returns the most recent archived yes-price for the market at or
	// before the given time, false when none exists.
	PriceAt(ctx context.Context, marketID string, before time.Time) (float64, bool, error)
	Health(ctx context.Context) error
	Close() error
}

// Notifier is the outbound alert boundary. The core considers an alert
// emitted once handed off; delivery retries belong to the boundary.
type Notifier interface {
	Notify(ctx context.Context, alert *models.Alert) error
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordTick(tier int)
	RecordSourceResult(source string, ok bool)
	RecordCandidates(analyzer string, n int)
	RecordAlert(kind, tier string)
	RecordSuppressed(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(marketID string, price float64)
	RecordNoData(n int)
}
