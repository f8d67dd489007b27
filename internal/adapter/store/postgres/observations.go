package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"go.ngs.io/climate-grid/internal/adapter/store"
)

// Aggregate sites (statewide IA0000, climate district IAC005) are averages
// of the real sites and never feed a grid.
const excludeAggregates = `substr(station, 3, 4) != '0000' AND substr(station, 3, 1) != 'C'`

const dailyObservationsQuery = `
	SELECT station, high, low, precip, snow, snowd
	FROM alldata
	WHERE day = $1 AND (estimated IS NULL OR NOT estimated) AND ` + excludeAggregates

const climateNormalsQuery = `
	SELECT station, high, low, precip
	FROM ncdc_climate71
	WHERE valid = $1 AND ` + excludeAggregates

// ObservationSource reads gridding inputs from the coop database.
type ObservationSource struct {
	db *sqlx.DB
}

// NewObservationSource creates an observation source over an open connection.
func NewObservationSource(db *sqlx.DB) *ObservationSource {
	return &ObservationSource{db: db}
}

// DailyObservations returns non-estimated daily values for a day.
func (o *ObservationSource) DailyObservations(ctx context.Context, day time.Time) ([]store.Observation, error) {
	var rows []store.Observation
	if err := o.db.SelectContext(ctx, &rows, dailyObservationsQuery, day.Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("daily observations %s: %w", day.Format(time.DateOnly), err)
	}
	return rows, nil
}

// ClimateNormals returns the 1971-2000 normals for a day. The normals table
// is keyed on year 2000 dates.
func (o *ObservationSource) ClimateNormals(ctx context.Context, day time.Time) ([]store.Observation, error) {
	valid := time.Date(2000, day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var rows []store.Observation
	if err := o.db.SelectContext(ctx, &rows, climateNormalsQuery, valid.Format(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("climate normals %s: %w", valid.Format(time.DateOnly), err)
	}
	return rows, nil
}
