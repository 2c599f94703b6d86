package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
)

var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_snapshots (
		market_id      String,
		tick           UInt64,
		yes_price      Float64,
		prices         String,
		source         LowCardinality(String),
		divergent      UInt8,
		divergence_pct Float64,
		volume_24h     Float64,
		liquidity      Float64,
		observed_at    DateTime64(3)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(observed_at)
	ORDER BY (market_id, observed_at)
	TTL toDateTime(observed_at) + INTERVAL 30 DAY`,
}

// ClickHouseArchive implements SnapshotArchive on ClickHouse.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates the archive and ensures its schema exists.
func NewClickHouseArchive(ctx context.Context, db *sql.DB) (*ClickHouseArchive, error) {
	for _, stmt := range archiveSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("archive schema: %w", err)
		}
	}
	return &ClickHouseArchive{db: db, table: "price_snapshots"}, nil
}

// WriteSnapshots batch-inserts one tick's snapshots. Rows go in as multi-row
// VALUES chunks to keep round-trips down.
func (a *ClickHouseArchive) WriteSnapshots(ctx context.Context, set *models.SnapshotSet) error {
	if set == nil || len(set.Snapshots) == 0 {
		return nil
	}

	const chunkSize = 2000
	values := make([]string, 0, chunkSize)
	args := make([]interface{}, 0, chunkSize*10)

	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (market_id, tick, yes_price, prices, source, divergent, divergence_pct, volume_24h, liquidity, observed_at) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive insert: %w", err)
		}
		values = values[:0]
		args = args[:0]
		return nil
	}

	for id, snap := range set.Snapshots {
		m := set.Market(id)
		if m == nil {
			continue
		}
		yes, ok := snap.YesPrice(m)
		if !ok {
			continue
		}
		pricesJSON, err := json.Marshal(snap.Prices)
		if err != nil {
			continue
		}
		divergent := uint8(0)
		if snap.Divergent {
			divergent = 1
		}

		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			id,
			snap.Tick,
			yes,
			string(pricesJSON),
			string(snap.Source),
			divergent,
			snap.DivergencePct,
			snap.Volume24h,
			snap.Liquidity,
			snap.ObservedAt,
		)
		if len(values) >= chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// PriceAt returns the last archived yes price for the market at or before
// the given time.
func (a *ClickHouseArchive) PriceAt(ctx context.Context, marketID string, before time.Time) (float64, bool, error) {
	q := fmt.Sprintf(
		"SELECT yes_price FROM %s WHERE market_id = ? AND observed_at <= ? ORDER BY observed_at DESC LIMIT 1",
		a.table)

	var price float64
	err := a.db.QueryRowContext(ctx, q, marketID, before).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("archive query: %w", err)
	}
	return price, true, nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

var _ repository.SnapshotArchive = (*ClickHouseArchive)(nil)
