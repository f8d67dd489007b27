package store

import (
	"context"
	"time"

	"go.ngs.io/climate-grid/internal/domain"
)

// StationLoader is the interface for reading station registry records
type StationLoader interface {
	// Stations returns every station of a network (e.g., "IACLIMATE")
	Stations(ctx context.Context, network string) ([]domain.Station, error)
}

// ReferenceSummary is one day of observations at a reference site. Nil
// fields were not reported.
type ReferenceSummary struct {
	MaxTmpf *float64 `db:"max_tmpf"`
	MinTmpf *float64 `db:"min_tmpf"`
	Pday    *float64 `db:"pday"`
	Snow    *float64 `db:"snow"`
}

// ReferenceLoader reads quality-controlled observations from reference sites
type ReferenceLoader interface {
	// Summary returns the day's summary for a reference station, or nil when
	// there is no row
	Summary(ctx context.Context, stationID string, day time.Time, network string) (*ReferenceSummary, error)
}

// DailyRecordTx is one region's transaction against its daily record table
type DailyRecordTx interface {
	// Lookup returns the existing record, or nil when none exists
	Lookup(ctx context.Context, stationID string, day time.Time) (*domain.DailyRecord, error)

	// InsertSkeleton creates a bare row carrying only the calendar fields
	InsertSkeleton(ctx context.Context, stationID string, day time.Time) error

	// UpdateEstimate writes the value fields, sets estimated and returns the
	// number of rows affected
	UpdateEstimate(ctx context.Context, stationID string, day time.Time, est domain.DailyEstimate) (int64, error)

	// Table names the destination table, for logging
	Table() string

	Commit() error
	Rollback() error
}

// DailyRecordStore opens per-region transactions
type DailyRecordStore interface {
	Begin(ctx context.Context, state string) (DailyRecordTx, error)
}

// Observation is one station's daily values used as gridding input.
type Observation struct {
	Station string   `db:"station"`
	High    *float64 `db:"high"`
	Low     *float64 `db:"low"`
	Precip  *float64 `db:"precip"`
	Snow    *float64 `db:"snow"`
	Snowd   *float64 `db:"snowd"`
}

// Field returns the named value of an observation (high, low, precip,
// snow or snowd).
func (o Observation) Field(name string) *float64 {
	switch name {
	case "high":
		return o.High
	case "low":
		return o.Low
	case "precip":
		return o.Precip
	case "snow":
		return o.Snow
	case "snowd":
		return o.Snowd
	}
	return nil
}

// ObservationLoader reads station observations for gridding
type ObservationLoader interface {
	// DailyObservations returns quality-controlled daily values for a day
	DailyObservations(ctx context.Context, day time.Time) ([]Observation, error)

	// ClimateNormals returns the daily normals valid on a day
	ClimateNormals(ctx context.Context, day time.Time) ([]Observation, error)
}
