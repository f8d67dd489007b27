package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"go.ngs.io/climate-grid/internal/adapter/store"
)

const summaryQuery = `
	SELECT s.max_tmpf, s.min_tmpf, s.pday, s.snow
	FROM summary s JOIN stations t ON (t.iemid = s.iemid)
	WHERE t.id = $1 AND s.day = $2 AND t.network = $3`

// ReferenceStore reads daily summaries of reference (ASOS) sites.
type ReferenceStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewReferenceStore creates a reference store over an open connection.
func NewReferenceStore(db *sqlx.DB, logger *slog.Logger) *ReferenceStore {
	return &ReferenceStore{db: db, logger: logger}
}

// Summary returns the reference site's summary for a day. It returns nil
// unless exactly one row matches; an ambiguous match is logged.
func (s *ReferenceStore) Summary(ctx context.Context, stationID string, day time.Time, network string) (*store.ReferenceSummary, error) {
	var rows []store.ReferenceSummary
	if err := s.db.SelectContext(ctx, &rows, summaryQuery, stationID, day.Format(time.DateOnly), network); err != nil {
		return nil, fmt.Errorf("summary for %s %s: %w", stationID, day.Format(time.DateOnly), err)
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	}
	s.logger.Warn("ambiguous reference summary, ignored",
		"station", stationID,
		"network", network,
		"day", day.Format(time.DateOnly),
		"rows", len(rows),
	)
	return nil, nil
}
