package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/overrides"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
)

// RegionResult summarizes one region's transaction.
type RegionResult struct {
	State     string
	Stations  int
	Written   int
	Skipped   map[Outcome]int
	Anomalies int
	Err       error
}

// RunReport is the outcome of an estimator run. Region failures are
// recorded here rather than returned.
type RunReport struct {
	Dates      []time.Time
	DateErrors map[string]error
	Regions    []RegionResult
}

// Failed returns the states whose transaction was rolled back.
func (r *RunReport) Failed() []string {
	var out []string
	for _, res := range r.Regions {
		if res.Err != nil {
			out = append(out, res.State)
		}
	}
	return out
}

// Written returns the total number of records written.
func (r *RunReport) Written() int {
	n := 0
	for _, res := range r.Regions {
		if res.Err == nil {
			n += res.Written
		}
	}
	return n
}

// Orchestrator runs the backfill over every region for a set of dates.
type Orchestrator struct {
	stations  store.StationLoader
	records   store.DailyRecordStore
	grids     GridLoader
	backfill  *Backfill
	overrides *overrides.Table
	clock     clockwork.Clock
	loc       *time.Location
	logger    *slog.Logger
	metrics   *observability.Metrics

	// Workers bounds how many regions run at once (default 1).
	Workers int
	// Regions overrides the default list of states.
	Regions []string
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(
	stations store.StationLoader,
	records store.DailyRecordStore,
	grids GridLoader,
	backfill *Backfill,
	table *overrides.Table,
	clock clockwork.Clock,
	loc *time.Location,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		stations:  stations,
		records:   records,
		grids:     grids,
		backfill:  backfill,
		overrides: table,
		clock:     clock,
		loc:       loc,
		logger:    logger,
		metrics:   metrics,
		Workers:   1,
	}
}

// DefaultDates returns today and yesterday in loc, as UTC midnights.
func DefaultDates(clock clockwork.Clock, loc *time.Location) []time.Time {
	today := Today(clock, loc)
	return []time.Time{today, today.AddDate(0, 0, -1)}
}

// Today returns the current calendar day in loc as a UTC midnight.
func Today(clock clockwork.Clock, loc *time.Location) time.Time {
	now := clock.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Run estimates every region for dates (DefaultDates when empty). Grids
// are loaded once per date before any region starts.
func (o *Orchestrator) Run(ctx context.Context, dates []time.Time) *RunReport {
	start := o.clock.Now()
	defer func() { o.metrics.RunDuration.Observe(o.clock.Since(start).Seconds()) }()

	if len(dates) == 0 {
		dates = DefaultDates(o.clock, o.loc)
	}
	today := Today(o.clock, o.loc)

	report := &RunReport{Dates: dates, DateErrors: make(map[string]error)}
	var loaded []*DailyGrids
	for _, day := range dates {
		g, err := o.grids.Load(ctx, day)
		if err != nil {
			o.logger.Error("grids unavailable, date skipped", "day", day.Format(time.DateOnly), "error", err)
			report.DateErrors[day.Format(time.DateOnly)] = err
			continue
		}
		loaded = append(loaded, g)
	}
	if len(loaded) == 0 {
		return report
	}

	regions := o.Regions
	if len(regions) == 0 {
		regions = domain.EstimationRegions()
	}
	workers := o.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]RegionResult, len(regions))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, state := range regions {
		g.Go(func() error {
			res := o.runRegion(gctx, state, loaded, today)
			mu.Lock()
			results[idx] = res
			mu.Unlock()
			// Region failures never cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	report.Regions = results
	return report
}

func (o *Orchestrator) runRegion(ctx context.Context, state string, grids []*DailyGrids, today time.Time) RegionResult {
	res := RegionResult{State: state, Skipped: make(map[Outcome]int)}
	logger := o.logger.With("state", state)

	fail := func(err error) RegionResult {
		res.Err = err
		o.metrics.RegionFailures.WithLabelValues(state).Inc()
		logger.Error("region failed, rolled back", "error", err)
		return res
	}

	stations, err := o.stations.Stations(ctx, domain.ClimateNetwork(state))
	if err != nil {
		return fail(fmt.Errorf("load stations: %w", err))
	}
	res.Stations = len(stations)
	o.warnMissingTargets(logger, state, stations)

	tx, err := o.records.Begin(ctx, state)
	if err != nil {
		return fail(fmt.Errorf("begin: %w", err))
	}

	for _, dg := range grids {
		skipRef := dg.Day.Equal(today)
		for _, st := range stations {
			if err := ctx.Err(); err != nil {
				return fail(errors.Join(err, tx.Rollback()))
			}
			outcome, err := o.backfill.Station(ctx, tx, state, st, dg, skipRef)
			if err != nil {
				return fail(errors.Join(
					fmt.Errorf("%s %s: %w", st.ID, dg.Day.Format(time.DateOnly), err),
					tx.Rollback(),
				))
			}
			switch outcome {
			case Written:
				res.Written++
			case Anomaly:
				res.Anomalies++
			default:
				res.Skipped[outcome]++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(errors.Join(fmt.Errorf("commit %s: %w", tx.Table(), err), tx.Rollback()))
	}

	o.metrics.StationsEstimated.WithLabelValues(state).Add(float64(res.Written))
	for outcome, n := range res.Skipped {
		o.metrics.StationsSkipped.WithLabelValues(outcome.String()).Add(float64(n))
	}
	logger.Info("region committed",
		"table", tx.Table(),
		"stations", res.Stations,
		"written", res.Written,
		"anomalies", res.Anomalies,
	)
	return res
}

// warnMissingTargets logs override targets of a state that the registry
// does not list.
func (o *Orchestrator) warnMissingTargets(logger *slog.Logger, state string, stations []domain.Station) {
	targets := o.overrides.TargetsInState(state)
	if len(targets) == 0 {
		return
	}
	known := make(map[string]bool, len(stations))
	for _, st := range stations {
		known[st.ID] = true
	}
	for _, target := range targets {
		if !known[target] {
			logger.Warn("override target not in station registry", "station", target)
		}
	}
}
