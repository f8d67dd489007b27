package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"go.ngs.io/climate-grid/internal/domain"
)

const stationsQuery = `
	SELECT id, name, network, COALESCE(state, '') AS state, ST_y(geom) AS lat, ST_x(geom) AS lon,
		temp24_hour, precip24_hour
	FROM stations
	WHERE network = $1
	ORDER BY id`

// StationRegistry reads the mesosite stations table.
type StationRegistry struct {
	db *sqlx.DB
}

// NewStationRegistry creates a registry over an open connection.
func NewStationRegistry(db *sqlx.DB) *StationRegistry {
	return &StationRegistry{db: db}
}

// Stations returns every station of a network ordered by id. A missing
// state column reads as empty.
func (r *StationRegistry) Stations(ctx context.Context, network string) ([]domain.Station, error) {
	var stations []domain.Station
	if err := r.db.SelectContext(ctx, &stations, stationsQuery, network); err != nil {
		return nil, fmt.Errorf("load stations for %s: %w", network, err)
	}
	return stations, nil
}
