package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/overrides"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
)

// Outcome is what happened to one station on one date.
type Outcome int

const (
	// Written means the row now carries the estimate.
	Written Outcome = iota
	// SkippedEmpty means no field could be estimated.
	SkippedEmpty
	// SkippedAggregate means the station is a computed average site.
	SkippedAggregate
	// SkippedObserved means the row already holds quality-controlled data.
	SkippedObserved
	// SkippedOutOfDomain means the station lies outside the grid.
	SkippedOutOfDomain
	// Anomaly means the update touched other than one row.
	Anomaly
)

// String returns the metric label of an outcome.
func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case SkippedEmpty:
		return "empty"
	case SkippedAggregate:
		return "aggregate"
	case SkippedObserved:
		return "observed"
	case SkippedOutOfDomain:
		return "out_of_domain"
	case Anomaly:
		return "anomaly"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Backfill turns analysis grids into daily record estimates for climate
// stations and upserts them.
type Backfill struct {
	refs      store.ReferenceLoader
	overrides *overrides.Table
	logger    *slog.Logger
	metrics   *observability.Metrics

	// OverwriteObserved lets estimates replace rows that hold
	// quality-controlled values.
	OverwriteObserved bool
}

// NewBackfill creates a backfill. refs and table may be nil, disabling the
// reference override.
func NewBackfill(refs store.ReferenceLoader, table *overrides.Table, logger *slog.Logger, metrics *observability.Metrics) *Backfill {
	return &Backfill{
		refs:      refs,
		overrides: table,
		logger:    logger,
		metrics:   metrics,
	}
}

// Estimate computes a station's values from the grids. Each field is
// checked independently; a failed check leaves only that field missing.
func (b *Backfill) Estimate(st domain.Station, grids *DailyGrids) (domain.DailyEstimate, error) {
	i, j, err := grids.Geo.CellOf(st.Lat, st.Lon)
	if err != nil {
		return domain.DailyEstimate{}, err
	}

	highVar, lowVar := VarHigh12, VarLow12
	if domain.MidnightWindow(st.Temp24Hour) {
		highVar, lowVar = VarHigh00, VarLow00
	}
	precipVar := VarPrecip12
	if domain.MidnightWindow(st.Precip24Hour) {
		precipVar = VarPrecip00
	}

	var est domain.DailyEstimate
	est.High = b.check(st, grids.Value(highVar, i, j), func(v float64) (float64, error) {
		return domain.CheckTemperature("high", v)
	})
	est.Low = b.check(st, grids.Value(lowVar, i, j), func(v float64) (float64, error) {
		return domain.CheckTemperature("low", v)
	})
	est.Precip = b.check(st, grids.Value(precipVar, i, j), domain.CheckPrecip)
	est.Snow = b.check(st, grids.Value(VarSnow12, i, j), domain.CheckSnow)
	est.Snowd = b.check(st, grids.Value(VarSnowd12, i, j), domain.CheckSnowDepth)
	return est, nil
}

// check applies a plausibility rule. Missing grid values stay missing
// without being reported.
func (b *Backfill) check(st domain.Station, v float64, rule func(float64) (float64, error)) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	out, err := rule(v)
	if err != nil {
		var rv *domain.RangeViolation
		if errors.As(err, &rv) {
			b.metrics.RangeViolations.WithLabelValues(rv.Field).Inc()
		}
		b.logger.Warn("estimate rejected", "station", st.ID, "error", err)
		return nil
	}
	return &out
}

// ApplyReference replaces estimate fields with the observations of the
// station's reference site, when one is configured. The reference is looked
// up in state's ASOS network. Only non-null values that pass the same
// plausibility rules win.
func (b *Backfill) ApplyReference(ctx context.Context, state string, st domain.Station, day time.Time, est domain.DailyEstimate) (domain.DailyEstimate, error) {
	if b.refs == nil {
		return est, nil
	}
	ref, ok := b.overrides.Reference(st.ID)
	if !ok {
		return est, nil
	}
	sum, err := b.refs.Summary(ctx, ref, day, domain.ASOSNetwork(state))
	if err != nil {
		return est, fmt.Errorf("reference %s for %s: %w", ref, st.ID, err)
	}
	if sum == nil {
		b.logger.Debug("no reference summary", "station", st.ID, "reference", ref, "day", day.Format(time.DateOnly))
		return est, nil
	}

	replace := func(dst **float64, v *float64, rule func(float64) (float64, error)) {
		if v == nil {
			return
		}
		out, err := rule(*v)
		if err != nil {
			b.logger.Warn("reference value rejected", "station", st.ID, "reference", ref, "error", err)
			return
		}
		*dst = &out
		b.metrics.ReferenceOverrides.Inc()
	}
	replace(&est.High, sum.MaxTmpf, func(v float64) (float64, error) { return domain.CheckTemperature("high", v) })
	replace(&est.Low, sum.MinTmpf, func(v float64) (float64, error) { return domain.CheckTemperature("low", v) })
	replace(&est.Precip, sum.Pday, domain.CheckPrecip)
	replace(&est.Snow, sum.Snow, domain.CheckSnow)
	return est, nil
}

// Upsert writes an estimate for (station, day) inside a region
// transaction. Cardinality anomalies are logged and reported as an
// Outcome, not an error; only database failures return an error.
func (b *Backfill) Upsert(ctx context.Context, tx store.DailyRecordTx, stationID string, day time.Time, est domain.DailyEstimate) (Outcome, error) {
	if domain.IsAggregateSite(stationID) {
		return SkippedAggregate, nil
	}
	if est.Empty() {
		return SkippedEmpty, nil
	}

	rec, err := tx.Lookup(ctx, stationID, day)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		if err := tx.InsertSkeleton(ctx, stationID, day); err != nil {
			return 0, err
		}
	} else if rec.HasObservedData() && !b.OverwriteObserved {
		return SkippedObserved, nil
	}

	n, err := tx.UpdateEstimate(ctx, stationID, day, est)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		anomaly := &domain.UpdateCardinalityAnomaly{Table: tx.Table(), StationID: stationID, Day: day, Rows: n}
		b.logger.Error("update cardinality anomaly", "error", anomaly)
		b.metrics.CardinalityAnomaly.Inc()
		return Anomaly, nil
	}
	return Written, nil
}

// Station runs estimate, reference override and upsert for one station of
// state's region. Reference lookups are skipped when skipReference is set
// (the current day, whose reference summary is still incomplete).
func (b *Backfill) Station(ctx context.Context, tx store.DailyRecordTx, state string, st domain.Station, grids *DailyGrids, skipReference bool) (Outcome, error) {
	if domain.IsAggregateSite(st.ID) {
		return SkippedAggregate, nil
	}
	est, err := b.Estimate(st, grids)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfDomain) {
			b.logger.Warn("station outside grid", "station", st.ID, "error", err)
			return SkippedOutOfDomain, nil
		}
		return 0, err
	}
	if !skipReference {
		if est, err = b.ApplyReference(ctx, state, st, grids.Day, est); err != nil {
			// The grid estimate still stands.
			b.logger.Warn("reference lookup failed", "station", st.ID, "error", err)
		}
	}
	return b.Upsert(ctx, tx, st.ID, grids.Day, est)
}
