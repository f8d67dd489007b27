package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/domain"
)

// TableFor returns the quoted daily record table of a state.
func TableFor(state string) (string, error) {
	st := strings.ToUpper(state)
	if !domain.ValidState(st) {
		return "", fmt.Errorf("unknown state %q", state)
	}
	return pq.QuoteIdentifier("alldata_" + strings.ToLower(st)), nil
}

// DailyRecordStore opens transactions on the per-state alldata tables.
type DailyRecordStore struct {
	db *sqlx.DB
}

// NewDailyRecordStore creates a record store over an open connection.
func NewDailyRecordStore(db *sqlx.DB) *DailyRecordStore {
	return &DailyRecordStore{db: db}
}

// Begin starts a transaction scoped to one state's table.
func (s *DailyRecordStore) Begin(ctx context.Context, state string) (store.DailyRecordTx, error) {
	table, err := TableFor(state)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", table, err)
	}
	return &RegionTx{tx: tx, table: table}, nil
}

// RegionTx is an open transaction against one alldata table.
type RegionTx struct {
	tx    *sqlx.Tx
	table string
}

// Table returns the quoted table name.
func (t *RegionTx) Table() string { return t.table }

// Lookup returns the existing row for (station, day), or nil.
func (t *RegionTx) Lookup(ctx context.Context, stationID string, day time.Time) (*domain.DailyRecord, error) {
	query := `SELECT station, day, high, low, precip, snow, snowd, estimated FROM ` +
		t.table + ` WHERE station = $1 AND day = $2`

	var rec domain.DailyRecord
	err := t.tx.GetContext(ctx, &rec, query, stationID, day.Format(time.DateOnly))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", stationID, day.Format(time.DateOnly), err)
	}
	return &rec, nil
}

// InsertSkeleton inserts a row with only the key and calendar fields.
func (t *RegionTx) InsertSkeleton(ctx context.Context, stationID string, day time.Time) error {
	query := `INSERT INTO ` + t.table + ` (station, day, sday, year, month) VALUES ($1, $2, $3, $4, $5)`
	_, err := t.tx.ExecContext(ctx, query,
		stationID, day.Format(time.DateOnly), domain.SDay(day), day.Year(), int(day.Month()))
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", stationID, day.Format(time.DateOnly), err)
	}
	return nil
}

// UpdateEstimate overwrites the value fields, marks the row estimated and
// returns the affected row count.
func (t *RegionTx) UpdateEstimate(ctx context.Context, stationID string, day time.Time, est domain.DailyEstimate) (int64, error) {
	query := `UPDATE ` + t.table + ` SET high = $1, low = $2, precip = $3, snow = $4, snowd = $5,
		estimated = 't' WHERE day = $6 AND station = $7`

	res, err := t.tx.ExecContext(ctx, query,
		nullable(est.High), nullable(est.Low), nullable(est.Precip),
		nullable(est.Snow), nullable(est.Snowd),
		day.Format(time.DateOnly), stationID)
	if err != nil {
		return 0, fmt.Errorf("update %s %s: %w", stationID, day.Format(time.DateOnly), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Commit commits the region's writes.
func (t *RegionTx) Commit() error { return t.tx.Commit() }

// Rollback aborts the region's writes. Rolling back a finished transaction
// is not an error.
func (t *RegionTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
